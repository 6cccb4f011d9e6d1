package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/receptar-app/backend/internal/middleware"
	"github.com/receptar-app/backend/internal/service"
)

type SyncHandler struct {
	sync *service.SyncService
	log  *zap.Logger
	opts service.SyncOptions
}

func NewSyncHandler(sync *service.SyncService, log *zap.Logger, opts service.SyncOptions) *SyncHandler {
	return &SyncHandler{sync: sync, log: log, opts: opts}
}

func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup, limiter *middleware.RateLimiter) {
	admin := router.Group("/admin/catalog")
	{
		admin.POST("/sync", limiter.RateLimitMiddleware(), h.TriggerSync)
		admin.GET("/sync", h.SyncStatus)
	}
}

// TriggerSync starts a catalog sync in the background. The sync itself is
// single-flight; a second trigger while one runs is rejected.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	if h.sync.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "Catalog sync already running"})
		return
	}

	go func() {
		// Detached from the request context: the sync outlives it.
		if _, err := h.sync.Run(context.Background(), h.opts); err != nil && !errors.Is(err, service.ErrSyncRunning) {
			h.log.Error("background catalog sync failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// SyncStatus reports the last published sync status, falling back to the
// in-process running flag when no status was ever published.
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		h.log.Error("reading sync status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read sync status"})
		return
	}
	if status == nil {
		c.JSON(http.StatusOK, gin.H{"running": h.sync.Running()})
		return
	}

	c.JSON(http.StatusOK, status)
}
