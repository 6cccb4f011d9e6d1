package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/receptar-app/backend/internal/middleware"
	"github.com/receptar-app/backend/internal/model"
	"github.com/receptar-app/backend/internal/nutrition"
	"github.com/receptar-app/backend/internal/service"
)

type CatalogHandler struct {
	catalog  *service.CatalogService
	redis    *redis.Client
	log      *zap.Logger
	cacheTTL time.Duration
}

func NewCatalogHandler(catalog *service.CatalogService, redisClient *redis.Client, log *zap.Logger, cacheTTL time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		redis:    redisClient,
		log:      log,
		cacheTTL: cacheTTL,
	}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup, searchLimiter *middleware.RateLimiter) {
	catalog := router.Group("/catalog")
	{
		catalog.GET("/search", searchLimiter.RateLimitMiddleware(), h.Search)
		catalog.GET("/products/:code", h.GetProduct)
		catalog.POST("/products", h.CreateManualProduct)
	}
}

type searchResponse struct {
	Results []model.FoodProduct `json:"results"`
}

// Search answers the ingredient autocomplete. Short or empty queries are a
// normal case and return an empty result set, never an error.
func (h *CatalogHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	localOnly := c.Query("local") == "true"

	cacheKey := fmt.Sprintf("catalog:search:%t:%d:%s", localOnly, limit, strings.ToLower(query))
	if body, ok := h.cachedSearch(c, cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	var (
		results []model.FoodProduct
		err     error
	)
	if localOnly {
		results, err = h.catalog.SearchLocal(c.Request.Context(), query, limit)
	} else {
		results, err = h.catalog.Search(c.Request.Context(), query, limit)
	}
	if err != nil {
		h.log.Error("catalog search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search catalog"})
		return
	}

	resp := searchResponse{Results: results}
	h.storeSearch(c, cacheKey, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) cachedSearch(c *gin.Context, key string) ([]byte, bool) {
	if h.redis == nil {
		return nil, false
	}
	body, err := h.redis.Get(c.Request.Context(), key).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

func (h *CatalogHandler) storeSearch(c *gin.Context, key string, resp searchResponse) {
	if h.redis == nil || h.cacheTTL <= 0 {
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	// Cache failures only cost a repeat lookup.
	if err := h.redis.Set(c.Request.Context(), key, body, h.cacheTTL).Err(); err != nil {
		h.log.Warn("caching search results", zap.Error(err))
	}
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	code := c.Param("code")
	product, err := h.catalog.GetByCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		h.log.Error("catalog lookup failed", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

type createProductRequest struct {
	Code             string              `json:"code"`
	Name             string              `json:"name" binding:"required"`
	NameLocalized    *string             `json:"name_localized"`
	Brand            string              `json:"brand"`
	Quantity         string              `json:"quantity"`
	ImageURL         string              `json:"image_url"`
	PieceWeightGrams *float64            `json:"piece_weight_grams"`
	Nutrients        nutrition.Nutrients `json:"nutrients"`
}

// CreateManualProduct stores an admin-typed catalog entry, used for local
// foods that never appear in the remote dump.
func (h *CatalogHandler) CreateManualProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := model.FoodProduct{
		Code:             req.Code,
		Name:             &req.Name,
		NameLocalized:    req.NameLocalized,
		Brand:            req.Brand,
		Quantity:         req.Quantity,
		ImageURL:         req.ImageURL,
		PieceWeightGrams: req.PieceWeightGrams,
		Nutrients:        req.Nutrients,
	}
	if err := h.catalog.CreateManual(c.Request.Context(), &product); err != nil {
		h.log.Error("creating manual product failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, product)
}
