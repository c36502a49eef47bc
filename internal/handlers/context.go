package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey は認証ミドルウェアがトークンのユーザーIDを格納するキーです。
const ContextUserIDKey = "user_id"

// MsgInvalidCredentials は認証失敗時に返す共通メッセージです。
const MsgInvalidCredentials = "Could not validate credentials"

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// currentUserID はコンテキストからトークンのユーザーIDを取り出します。
// 取り出せない場合はレスポンスを書き込んでfalseを返します。
func currentUserID(c *gin.Context) (int, bool) {
	userIDVal, exists := c.Get(ContextUserIDKey)
	if !exists {
		c.Header("WWW-Authenticate", "Bearer")
		detail(c, http.StatusUnauthorized, MsgInvalidCredentials)
		return 0, false
	}
	userID, ok := userIDVal.(int)
	if !ok {
		detail(c, http.StatusInternalServerError, "Invalid user ID type in context")
		return 0, false
	}
	return userID, true
}
