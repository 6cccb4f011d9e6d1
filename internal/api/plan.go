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
)

type PlanHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPlanHandler(db *gorm.DB, log *zap.Logger) *PlanHandler {
	return &PlanHandler{db: db, log: log}
}

func (h *PlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	plans := router.Group("/plans")
	{
		plans.POST("/aggregate", h.Aggregate)
	}
}

type planRecipeRequest struct {
	RecipeID    uuid.UUID `json:"recipe_id" binding:"required"`
	Occurrences int       `json:"occurrences"`
}

type planItemRequest struct {
	Name                    string              `json:"name" binding:"required"`
	Amount                  float64             `json:"amount"`
	Unit                    string              `json:"unit"`
	PieceWeightGrams        *float64            `json:"piece_weight_grams"`
	DefaultPieceWeightGrams *float64            `json:"default_piece_weight_grams"`
	Per100                  nutrition.Nutrients `json:"per_100"`
	Occurrences             int                 `json:"occurrences"`
}

type aggregateRequest struct {
	Recipes []planRecipeRequest `json:"recipes"`
	Items   []planItemRequest   `json:"items"`
}

// Aggregate merges a week plan into one shopping list and nutrition total.
// The plan is given as stored recipes with their occurrence counts, plus
// optional ad hoc items. Occurrences default to one.
func (h *PlanHandler) Aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Recipes) == 0 && len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan is empty"})
		return
	}

	items := make([]nutrition.PlanItem, 0, len(req.Items))

	for _, pr := range req.Recipes {
		occ := pr.Occurrences
		if occ == 0 {
			occ = 1
		}

		var recipe model.Recipe
		err := h.db.WithContext(c.Request.Context()).
			Preload("Ingredients").
			First(&recipe, "id = ?", pr.RecipeID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found", "recipe_id": pr.RecipeID})
				return
			}
			h.log.Error("fetching plan recipe failed", zap.String("recipe_id", pr.RecipeID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipe"})
			return
		}

		for _, ing := range recipe.Ingredients {
			items = append(items, nutrition.PlanItem{
				Name:                    ing.Name,
				Amount:                  ing.Amount,
				Unit:                    ing.Unit,
				PieceWeightGrams:        ing.PieceWeightGrams,
				DefaultPieceWeightGrams: ing.DefaultPieceWeightGrams,
				Per100:                  ing.Nutrients,
				Occurrences:             occ,
			})
		}
	}

	for _, it := range req.Items {
		occ := it.Occurrences
		if occ == 0 {
			occ = 1
		}
		items = append(items, nutrition.PlanItem{
			Name:                    it.Name,
			Amount:                  it.Amount,
			Unit:                    it.Unit,
			PieceWeightGrams:        it.PieceWeightGrams,
			DefaultPieceWeightGrams: it.DefaultPieceWeightGrams,
			Per100:                  it.Per100,
			Occurrences:             occ,
		})
	}

	c.JSON(http.StatusOK, nutrition.Aggregate(items))
}
