package models

import "time"

// User はユーザーのデータベース構造体を表します。
// JSONタグ: クライアントとの通信用
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // JSONに出さない
	CreatedAt    time.Time `json:"created_at"`
}

// UserRegisterRequest はユーザー登録リクエストの構造体です。
// 形式チェックはサービス層で行います。
type UserRegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"` // 生パスワード
}

// UserLoginRequest はユーザーログインリクエストの構造体です。
// ログインは application/x-www-form-urlencoded で送られます。
type UserLoginRequest struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenResponse はログイン成功時のレスポンスです。
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// TokenTypeBearer は TokenResponse.TokenType の値です。
const TokenTypeBearer = "bearer"

// JWTClaims はトークンから取り出した認証情報です。
type JWTClaims struct {
	UserID int
}
