package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/finchat/finchat/internal/config"
	"github.com/finchat/finchat/internal/demo/seed"
	"github.com/finchat/finchat/internal/observability"
	"github.com/finchat/finchat/internal/schema"
	s3store "github.com/finchat/finchat/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("finchat-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	seedCfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objectStore, err := s3store.New(ctx, s3store.ConfigFrom(cfg.ObjectStore))
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	seeder, err := seed.NewSeeder(seedCfg, objectStore, schema.DefaultRegistry(), logger)
	if err != nil {
		logger.Error("failed to initialize seeder", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("seeding warehouse tables",
		slog.String("bucket", cfg.ObjectStore.Bucket),
		slog.String("start_month", seedCfg.StartMonth.Format("2006-01")),
		slog.Int("months", seedCfg.Months),
		slog.Int64("seed", seedCfg.Seed),
	)
	summaries, err := seeder.Run(ctx)
	if err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
	for _, summary := range summaries {
		logger.Info("table ready", slog.String("table", summary.Table), slog.Int("rows", summary.Rows), slog.Int("files", summary.Files))
	}
}
