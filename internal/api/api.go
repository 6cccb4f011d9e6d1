package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/receptar-app/backend/config"
	"github.com/receptar-app/backend/internal/middleware"
	"github.com/receptar-app/backend/internal/service"
)

func SetupAPI(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, log *zap.Logger, cfg *config.Config) {
	v1 := router.Group("/api/v1")
	{
		// Initialize services
		catalogService := service.NewCatalogService(db, log, service.SearchConfig{
			SimilarityThreshold: cfg.SearchSimilarityThreshold,
			DefaultLimit:        cfg.SearchDefaultLimit,
			MaxLimit:            cfg.SearchMaxLimit,
		})
		syncService := service.NewSyncService(catalogService, redisClient, log, cfg.CatalogDumpURL)

		syncOpts := service.SyncOptions{
			BatchSize:     cfg.CatalogBatchSize,
			TargetLang:    cfg.CatalogTargetLang,
			FallbackLang:  cfg.CatalogFallbackLang,
			StrictRegion:  cfg.CatalogStrictRegion,
			RegionTag:     cfg.CatalogRegionTag,
			ProgressEvery: cfg.CatalogProgressEvery,
		}

		// Initialize handlers
		catalogHandler := NewCatalogHandler(catalogService, redisClient, log, cfg.SearchCacheTTL)
		ingredientHandler := NewIngredientHandler(db, catalogService, log)
		planHandler := NewPlanHandler(db, log)
		syncHandler := NewSyncHandler(syncService, log, syncOpts)

		// Register routes
		catalogHandler.RegisterRoutes(v1, middleware.NewSearchRateLimiter(redisClient))
		ingredientHandler.RegisterRoutes(v1)
		planHandler.RegisterRoutes(v1)
		syncHandler.RegisterRoutes(v1, middleware.NewSyncTriggerRateLimiter(redisClient))
	}
}
