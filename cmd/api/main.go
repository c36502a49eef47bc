package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"go-todo-web/internal/config"
	"go-todo-web/internal/database"
	"go-todo-web/internal/logging"
	"go-todo-web/internal/repositories"
	"go-todo-web/internal/routes"
	"go-todo-web/internal/services"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "server listening", "addr", srv.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildDependencies は設定されたストレージに応じてリポジトリを組み立てます。
// MySQLの場合は接続後にマイグレーションを適用します。
func buildDependencies(ctx context.Context, cfg *config.Config, logger logging.Logger) (routes.Dependencies, func(), error) {
	deps := routes.Dependencies{
		JWTService:   services.NewJWTService(cfg.JWTSecret, cfg.TokenTTL),
		Logger:       logger,
		AllowOrigins: cfg.AllowOrigins,
	}

	if cfg.Storage == config.StorageMemory {
		logger.Warn(ctx, "using in-memory storage; data is lost on restart")
		deps.UserRepo = repositories.NewMemoryUserRepo()
		deps.TaskRepo = repositories.NewMemoryTaskRepo()
		return deps, func() {}, nil
	}

	db, err := database.InitDB(ctx, cfg.DB)
	if err != nil {
		return deps, nil, err
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		db.Close()
		return deps, nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info(ctx, "connected to MySQL", "host", cfg.DB.Host, "db", cfg.DB.Name)

	deps.DB = db
	deps.UserRepo = repositories.NewMySQLUserRepo(db)
	deps.TaskRepo = repositories.NewMySQLTaskRepo(db)
	return deps, func() { db.Close() }, nil
}
