// Package routesはroutingを行います。
package routes

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go-todo-web/internal/handlers"
	"go-todo-web/internal/logging"
	"go-todo-web/internal/repositories"
	"go-todo-web/internal/services"
)

// Dependencies はルーターが必要とする依存関係です。
// DBはMySQL使用時のみ設定し、ヘルスチェックでpingします。
type Dependencies struct {
	DB           *sql.DB
	UserRepo     repositories.UserRepository
	TaskRepo     repositories.TaskRepository
	JWTService   *services.JWTService
	Logger       logging.Logger
	AllowOrigins []string
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	r.Use(gin.Recovery(), RequestLogger(deps.Logger), SecurityHeaders())

	// CORS対策
	config := cors.DefaultConfig()
	config.AllowOrigins = deps.AllowOrigins
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}
	config.ExposeHeaders = []string{RequestIDHeader}
	config.AllowCredentials = true
	r.Use(cors.New(config))

	// サービス
	userService := services.NewUserService(deps.UserRepo)
	taskService := services.NewTaskService(deps.TaskRepo)

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, deps.JWTService)
	taskHandler := handlers.NewTaskHandler(taskService)

	r.GET("/health", HealthHandler(deps.DB))

	api := r.Group("/api")
	api.POST("/users/register", userHandler.RegisterHandler)
	api.POST("/users/login", userHandler.LoginHandler)

	authorized := api.Group("/")
	authorized.Use(AuthMiddleware(deps.JWTService, deps.UserRepo))
	{
		authorized.GET("/users/me", userHandler.MeHandler)
		authorized.GET("/:user_id/tasks", taskHandler.GetTasksHandler)
		authorized.POST("/:user_id/tasks", taskHandler.CreateTaskHandler)
		authorized.GET("/:user_id/tasks/:task_id", taskHandler.GetTaskHandler)
		authorized.PUT("/:user_id/tasks/:task_id", taskHandler.UpdateTaskHandler)
		authorized.DELETE("/:user_id/tasks/:task_id", taskHandler.DeleteTaskHandler)
		authorized.PATCH("/:user_id/tasks/:task_id/complete", taskHandler.ToggleTaskHandler)
	}

	return r
}

// HealthHandler はサーバーの状態を返します。dbがnilでなければ接続も確認します。
func HealthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "detail": "Database connection failed"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
