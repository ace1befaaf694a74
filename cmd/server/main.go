package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"folio_backend/internal/app/di"
	"folio_backend/internal/app/router"
	"folio_backend/internal/platform/config"
	"folio_backend/internal/platform/http/handler"
	"folio_backend/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if _, err := logger.Init(cfg.Logger); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := di.NewContainer(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		return
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Error("failed to close resources", "error", err)
		}
	}()

	// JWT_SECRETチェック（開発中の注意喚起）
	if cfg.JWT.Secret == "" {
		slog.Warn("JWT_SECRET is not set. Set a strong secret in production.")
	}

	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}

	r := router.NewRouter(c.Handlers, router.Options{
		JWTSecret:    cfg.JWT.Secret,
		Metrics:      c.Metrics,
		HTMLTemplate: c.HTMLTemplate,
		ReadyChecks:  checks,
	})

	// バックグラウンドでデータ収集ジョブを処理
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := c.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("data gathering worker stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	<-workerDone
}
