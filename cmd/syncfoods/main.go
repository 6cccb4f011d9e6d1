package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/receptar-app/backend/config"
	"github.com/receptar-app/backend/internal/database"
	"github.com/receptar-app/backend/internal/logger"
	"github.com/receptar-app/backend/internal/service"
)

// Runs one catalog sync from the command line, for cron jobs and initial
// catalog bootstrap. A SIGINT or SIGTERM cancels the run; flushed batches
// stay in the catalog and a re-run picks the rest up idempotently.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(config.IsProduction())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.NewGorm(cfg)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseGorm(db)

	if err := database.RunMigrations(db, "migrations"); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	// The job works without Redis; only the published status is lost.
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		zlog.Warn("Redis unavailable, sync status will not be published", zap.Error(err))
		redisClient = nil
	}

	catalog := service.NewCatalogService(db, zlog, service.SearchConfig{
		SimilarityThreshold: cfg.SearchSimilarityThreshold,
		DefaultLimit:        cfg.SearchDefaultLimit,
		MaxLimit:            cfg.SearchMaxLimit,
	})
	sync := service.NewSyncService(catalog, redisClient, zlog, cfg.CatalogDumpURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := sync.Run(ctx, service.SyncOptions{
		BatchSize:     cfg.CatalogBatchSize,
		TargetLang:    cfg.CatalogTargetLang,
		FallbackLang:  cfg.CatalogFallbackLang,
		StrictRegion:  cfg.CatalogStrictRegion,
		RegionTag:     cfg.CatalogRegionTag,
		ProgressEvery: cfg.CatalogProgressEvery,
	})
	if err != nil {
		zlog.Fatal("Catalog sync failed",
			zap.Int("processed", result.Processed),
			zap.Int("saved", result.Saved),
			zap.Error(err))
	}

	zlog.Info("Catalog sync complete",
		zap.Int("processed", result.Processed),
		zap.Int("saved", result.Saved))
}
