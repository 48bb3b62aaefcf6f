package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/demo/marketing"
	"github.com/sqlscribe/sqlscribe/internal/observability"
	s3store "github.com/sqlscribe/sqlscribe/internal/storage/s3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("sqlscribe-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	seedCfg, err := marketing.LoadSeedConfigFromEnv(os.LookupEnv)
	if err != nil {
		logger.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objectStore, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	dataset := marketing.NewGenerator(seedCfg.Seed, seedCfg.StartDate, seedCfg.Days, seedCfg.Campaigns, seedCfg.AdsPerCampaign).Generate()
	logger.Info("seeding marketing dataset",
		slog.Int64("seed", seedCfg.Seed),
		slog.String("start_date", seedCfg.StartDate.Format("2006-01-02")),
		slog.Int("days", seedCfg.Days),
		slog.Int("campaigns", len(dataset.Campaigns)),
		slog.Int("customer_metrics", len(dataset.CustomerMetrics)),
		slog.Int("ads", len(dataset.Ads)),
		slog.Bool("replace", seedCfg.Replace),
	)

	written, err := marketing.NewSeeder(objectStore, cfg.Engine.DuckDB.DatasetPrefix, logger).Seed(ctx, dataset, seedCfg.Replace)
	if err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete", slog.Int("files", len(written)))
}
