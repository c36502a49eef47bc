// Package testutil はハンドラーやルートのテストで使う共通のセットアップを提供します。
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"go-todo-web/internal/config"
	"go-todo-web/internal/database"
	"go-todo-web/internal/models"
	"go-todo-web/internal/repositories"
	"go-todo-web/internal/routes"
	"go-todo-web/internal/services"
)

const (
	TestJWTSecret = "test-secret"

	NormalUserEmail = "normal_user@example.com"
	OtherUserEmail  = "other_user@example.com"
	TestPassword    = "password123"
)

// NewTestJWTService はテスト用の秘密鍵でJWTServiceを作成します。
func NewTestJWTService() *services.JWTService {
	return services.NewJWTService(TestJWTSecret, 30*time.Minute)
}

// SetupTestRouter はメモリ上のリポジトリでGinルーターをセットアップし、
// テストユーザー (normal_user: ID 1, other_user: ID 2) を投入します。
func SetupTestRouter(t *testing.T) (*gin.Engine, repositories.UserRepository, repositories.TaskRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := repositories.NewMemoryUserRepo()
	taskRepo := repositories.NewMemoryTaskRepo()
	seedUsers(t, userRepo)

	r := routes.SetupRouter(routes.Dependencies{
		UserRepo:   userRepo,
		TaskRepo:   taskRepo,
		JWTService: NewTestJWTService(),
	})
	return r, userRepo, taskRepo
}

// SetupTestDB はMySQLのテスト用データベースに接続し、マイグレーションを適用して
// テーブルを空にした後、テストユーザーを投入します。
// TEST_DB_NAME が設定されていない場合はテストをスキップします。
func SetupTestDB(t *testing.T) (*sql.DB, *gin.Engine) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	if os.Getenv("TEST_DB_NAME") == "" {
		t.Skip("TEST_DB_NAME not set; skipping MySQL integration test")
	}

	ctx := context.Background()
	db, err := database.InitDB(ctx, config.DBConfig{
		User: os.Getenv("TEST_DB_USER"),
		Pass: os.Getenv("TEST_DB_PASS"),
		Host: os.Getenv("TEST_DB_HOST"),
		Port: os.Getenv("TEST_DB_PORT"),
		Name: os.Getenv("TEST_DB_NAME"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(ctx, db))

	// 外部キー制約があるため、チェックを無効にしてから空にする
	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS=0"); err != nil {
		log.Printf("Failed to disable foreign key checks: %v", err)
	}
	for _, table := range []string{"tasks", "users"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table); err != nil {
			t.Fatalf("Failed to truncate %s table: %v", table, err)
		}
	}
	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS=1"); err != nil {
		log.Printf("Failed to enable foreign key checks: %v", err)
	}

	gin.SetMode(gin.TestMode)
	userRepo := repositories.NewMySQLUserRepo(db)
	seedUsers(t, userRepo)

	r := routes.SetupRouter(routes.Dependencies{
		DB:         db,
		UserRepo:   userRepo,
		TaskRepo:   repositories.NewMySQLTaskRepo(db),
		JWTService: NewTestJWTService(),
	})
	return db, r
}

func seedUsers(t *testing.T, userRepo repositories.UserRepository) {
	t.Helper()
	CreateTestUser(t, userRepo, NormalUserEmail, "Normal User", TestPassword)
	CreateTestUser(t, userRepo, OtherUserEmail, "Other User", TestPassword)
}

// CreateTestUser はパスワードをハッシュ化してユーザーを直接リポジトリに保存します。
func CreateTestUser(t *testing.T, userRepo repositories.UserRepository, email, name, password string) *models.User {
	t.Helper()
	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	createdUser, err := userRepo.Create(context.Background(), &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
	})
	require.NoError(t, err)
	require.NotEqual(t, 0, createdUser.ID)
	return createdUser
}

// LoginAndGetToken はフォーム形式でログインし、アクセストークンを返します。
func LoginAndGetToken(t *testing.T, router *gin.Engine, email, password string) (string, error) {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}

	req, _ := http.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes models.TokenResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if loginRes.AccessToken == "" {
		return "", errors.New("access_token not found in login response")
	}
	return loginRes.AccessToken, nil
}

// DoJSON はBearerトークン付きのリクエストを送り、レスポンスを返します。bodyがnilでなければJSONにします。
func DoJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTask はAPI経由でタスクを作成します。
func CreateTestTask(t *testing.T, router *gin.Engine, token string, userID int, title string, completed bool) *models.Task {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, fmt.Sprintf("/api/%d/tasks", userID), token,
		models.TaskInput{Title: title, Completed: completed})
	require.Equal(t, http.StatusCreated, resp.Code, "タスク作成に失敗しました: %s", resp.Body.String())

	var created models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}
