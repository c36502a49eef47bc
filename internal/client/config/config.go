// Package config reads the terminal client's settings from flags and the
// environment.
//
// Precedence: flags, then TODO_API_URL / TODO_TOKEN_DB / TODO_LOG_LEVEL, then
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"go-todo-web/internal/client/api"
)

type Config struct {
	APIURL   string
	TokenDB  string
	LogLevel string
	Timeout  time.Duration
}

// ErrHelp is returned by Parse when --help is given.
var ErrHelp = pflag.ErrHelp

// DefaultTokenDB is the SQLite file used when --token-db is not set.
func DefaultTokenDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "todo_token.db"
	}
	return filepath.Join(dir, "todo-app", "token.db")
}

// Parse parses args, which must not include the program name.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}

	fs := pflag.NewFlagSet("todo", pflag.ContinueOnError)
	fs.StringVar(&cfg.APIURL, "api-url", envOr("TODO_API_URL", api.DefaultBaseURL), "base URL of the todo API")
	fs.StringVar(&cfg.TokenDB, "token-db", envOr("TODO_TOKEN_DB", DefaultTokenDB()), "SQLite file the login token is kept in")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("TODO_LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")
	fs.DurationVar(&cfg.Timeout, "timeout", 15*time.Second, "HTTP request timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid --api-url %q", cfg.APIURL)
	}
	if cfg.TokenDB == "" {
		return nil, errors.New("--token-db must not be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid --timeout %s", cfg.Timeout)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
