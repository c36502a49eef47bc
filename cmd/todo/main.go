package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go-todo-web/internal/client/api"
	"go-todo-web/internal/client/auth"
	"go-todo-web/internal/client/cli"
	"go-todo-web/internal/client/config"
	"go-todo-web/internal/client/tasks"
	"go-todo-web/internal/client/tokenstore"
	"go-todo-web/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openTokenStore(ctx, cfg.TokenDB)
	if err != nil {
		return err
	}
	defer store.Close()

	client := api.New(cfg.APIURL, store, api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	if err := client.Health(ctx); err != nil {
		logger.Warn(ctx, "API health check failed", "url", cfg.APIURL, "error", err)
	}

	session := auth.NewSession(client, store, logger)
	view := tasks.NewView(client, session, logger)
	defer view.Close()

	return cli.NewApp(session, view).Run(ctx)
}

// openTokenStore opens the token file, creating its directory if needed.
func openTokenStore(ctx context.Context, path string) (*tokenstore.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create token dir: %w", err)
		}
	}
	return tokenstore.OpenSQLite(ctx, path)
}
