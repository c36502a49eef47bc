// Package config はAPIサーバーの設定を環境変数と .env ファイルから読み込みます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// DBConfig はMySQL接続情報です。
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Config はAPIサーバーの実行時設定です。
type Config struct {
	Port         string
	Storage      string
	DB           DBConfig
	JWTSecret    string
	TokenTTL     time.Duration
	AllowOrigins []string
	LogLevel     string
}

// ErrMissingJWTSecret は JWT_SECRET が未設定の場合のエラーです。
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable not set")

// Load は .env ファイル(存在すれば)を読み込んだ後、環境変数から設定を組み立てます。
// 既に設定されている環境変数は .env で上書きされません。
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		Storage: strings.ToLower(getEnv("STORAGE", StorageMySQL)),
		DB: DBConfig{
			User: os.Getenv("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: getEnv("DB_HOST", "127.0.0.1"),
			Port: getEnv("DB_PORT", "3306"),
			Name: os.Getenv("DB_NAME"),
		},
		JWTSecret:    os.Getenv("JWT_SECRET"),
		AllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.Storage != StorageMySQL && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("unknown STORAGE %q (want %s or %s)", cfg.Storage, StorageMySQL, StorageMemory)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
