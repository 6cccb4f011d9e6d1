package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/receptar-app/backend/internal/model"
	"github.com/receptar-app/backend/internal/nutrition"
	"github.com/receptar-app/backend/internal/service"
)

type IngredientHandler struct {
	db      *gorm.DB
	catalog *service.CatalogService
	log     *zap.Logger
}

func NewIngredientHandler(db *gorm.DB, catalog *service.CatalogService, log *zap.Logger) *IngredientHandler {
	return &IngredientHandler{db: db, catalog: catalog, log: log}
}

func (h *IngredientHandler) RegisterRoutes(router *gin.RouterGroup) {
	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("/:id/nutrition", h.GetNutrition)
		ingredients.POST("/:id/link", h.LinkProduct)
	}
}

// GetNutrition resolves one ingredient's quantity and returns its absolute
// nutrition. Unresolvable quantities return the resolved form with empty
// nutrition rather than an error.
func (h *IngredientHandler) GetNutrition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ingredient ID"})
		return
	}

	var ingredient model.Ingredient
	if err := h.db.WithContext(c.Request.Context()).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
			return
		}
		h.log.Error("fetching ingredient failed", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ingredient"})
		return
	}

	q := ingredient.ResolvedQuantity()
	c.JSON(http.StatusOK, gin.H{
		"ingredient":     ingredient,
		"quantity":       q,
		"display_amount": nutrition.FormatAmount(ingredient.Amount),
		"nutrition":      ingredient.AbsoluteNutrition().Round(),
	})
}

type linkProductRequest struct {
	Code string `json:"code" binding:"required"`
}

// LinkProduct attaches a catalog entry to an ingredient, copying its
// per-100 g nutrition and default piece weight onto the ingredient row.
func (h *IngredientHandler) LinkProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ingredient ID"})
		return
	}

	var req linkProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ingredient, err := h.catalog.LinkIngredient(c.Request.Context(), id, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient or product not found"})
			return
		}
		h.log.Error("linking ingredient failed",
			zap.String("id", id.String()),
			zap.String("code", req.Code),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link ingredient"})
		return
	}

	c.JSON(http.StatusOK, ingredient)
}
