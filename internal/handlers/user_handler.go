package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-todo-web/internal/models"
	"go-todo-web/internal/repositories"
	"go-todo-web/internal/services"
)

// UserHandler はユーザー関連のハンドラーを管理します。
type UserHandler struct {
	userService *services.UserService
	jwtService  *services.JWTService
}

// NewUserHandler は新しいUserHandlerを作成します。
func NewUserHandler(userService *services.UserService, jwtService *services.JWTService) *UserHandler {
	return &UserHandler{userService: userService, jwtService: jwtService}
}

// RegisterHandler はユーザー登録を処理します。
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	var req models.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := h.userService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			detail(c, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, repositories.ErrDuplicateEmail):
			detail(c, http.StatusBadRequest, "Email already registered")
		default:
			detail(c, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

// LoginHandler はフォーム形式のログインを処理し、アクセストークンを返します。
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := h.userService.AuthenticateUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			detail(c, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		detail(c, http.StatusInternalServerError, "Failed to authenticate user")
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: models.TokenTypeBearer})
}

// MeHandler はトークンのユーザー情報を返します。
func (h *UserHandler) MeHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.Header("WWW-Authenticate", "Bearer")
			detail(c, http.StatusUnauthorized, MsgInvalidCredentials)
			return
		}
		detail(c, http.StatusInternalServerError, "Failed to fetch user")
		return
	}
	c.JSON(http.StatusOK, user)
}
