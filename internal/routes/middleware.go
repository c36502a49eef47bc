package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-todo-web/internal/handlers"
	"go-todo-web/internal/logging"
	"go-todo-web/internal/repositories"
	"go-todo-web/internal/services"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダーです。
const RequestIDHeader = "X-Request-ID"

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": handlers.MsgInvalidCredentials})
}

// AuthMiddleware はJWTトークンを検証し、ユーザーIDをコンテキストに設定するミドルウェアです。
// usersがnilでなければ、トークンのユーザーが存在することも確認します。
func AuthMiddleware(jwtService *services.JWTService, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, tokenString, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			unauthorized(c)
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			unauthorized(c)
			return
		}

		if users != nil {
			if _, err := users.FindByID(c.Request.Context(), claims.UserID); err != nil {
				if errors.Is(err, repositories.ErrUserNotFound) {
					unauthorized(c)
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Failed to verify user"})
				return
			}
		}

		c.Set(handlers.ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// SecurityHeaders はすべてのレスポンスにセキュリティ関連ヘッダーを付与します。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

type requestIDKey struct{}

// RequestIDFromContext はRequestLoggerが設定したリクエストIDを返します。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLogger はリクエストごとにIDを割り当て、完了時に1行ログを出力します。
// クライアントが X-Request-ID を送ってきた場合はそれを使います。
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, requestID))

		c.Next()

		log.Info(c.Request.Context(), "request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
