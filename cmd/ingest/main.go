package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"folio_backend/internal/app/di"
	"folio_backend/internal/platform/config"
	"folio_backend/internal/platform/logger"
)

// ingest は MANUAL 以外の全銘柄の履歴データを一度だけ収集します。
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
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	c, err := di.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize: ", err)
	}
	defer c.Close()

	n, err := c.DataGathering.GatherAll(ctx)
	if err != nil {
		slog.Error("failed to enqueue symbols", "error", err)
		return
	}
	slog.Info("enqueued symbols", "count", n)

	if err := c.Worker.Drain(ctx); err != nil {
		slog.Error("ingest aborted", "error", err)
		return
	}
	slog.Info("ingest ok")
}
