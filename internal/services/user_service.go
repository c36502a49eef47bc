package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"go-todo-web/internal/models"
	"go-todo-web/internal/repositories"
)

const (
	minPasswordLength = 8
	maxNameLength     = 255
)

// UserService はユーザー関連のビジネスロジックを扱います。
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// RegisterUser は入力を検証してユーザーを登録します。
// メールアドレスが登録済みの場合は repositories.ErrDuplicateEmail を返します。
func (s *UserService) RegisterUser(ctx context.Context, req models.UserRegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	if !strings.Contains(email, "@") {
		return nil, invalid("Invalid email address")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, invalid(fmt.Sprintf("Name cannot exceed %d characters", maxNameLength))
	}

	hashedPassword, err := repositories.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return nil, err
	}

	createdUser, err := s.userRepo.Create(ctx, &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return nil, err
	}
	createdUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return createdUser, nil
}

// AuthenticateUser はメールアドレスとパスワードでユーザーを認証します。
// ユーザーが存在しない場合もパスワード不一致と同じ ErrInvalidCredentials を返します。
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	foundUser, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := repositories.VerifyPassword(foundUser.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	foundUser.PasswordHash = ""
	return foundUser, nil
}

// GetUser はIDでユーザーを取得します。
func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}
