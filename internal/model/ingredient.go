package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/receptar-app/backend/internal/nutrition"
	"gorm.io/gorm"
)

// Ingredient is one ingredient row of a recipe: a free-text name with a
// user-entered amount and unit, optionally linked to a catalog product. The
// nutrition columns are a per-100 g copy taken from the linked product so
// recipe rendering never depends on the catalog being reachable.
type Ingredient struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RecipeID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipe_id"`

	Name   string  `gorm:"size:255;not null" json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `gorm:"size:32" json:"unit"`

	// Display overrides the computed amount/unit rendering when set.
	Display *string `gorm:"size:64" json:"display,omitempty"`

	// PieceWeightGrams overrides the linked product's default piece weight.
	PieceWeightGrams *float64 `json:"piece_weight_grams,omitempty"`

	// FoodProductCode links to the catalog entry the nutrition copy came
	// from. Nil for unlinked ingredients.
	FoodProductCode *string `gorm:"size:64;index" json:"food_product_code,omitempty"`

	// DefaultPieceWeightGrams is copied from the linked product.
	DefaultPieceWeightGrams *float64 `json:"default_piece_weight_grams,omitempty"`

	// Per-100 g nutrient copy. Nil means unknown.
	nutrition.Nutrients `gorm:"embedded" json:"nutrients"`

	// LastSyncedAt records when the nutrition copy was last refreshed from
	// the catalog. Zero for unlinked ingredients.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// BeforeCreate assigns the row ID; generated in the application so SQLite
// test databases behave the same as PostgreSQL.
func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ResolvedQuantity converts the row's amount and unit to the mass basis,
// using the row's own piece weight before the catalog default.
func (i *Ingredient) ResolvedQuantity() nutrition.Quantity {
	return nutrition.ResolveQuantity(i.Amount, i.Unit, i.PieceWeightGrams, i.DefaultPieceWeightGrams)
}

// AbsoluteNutrition computes the nutrient amounts for the row's resolved
// quantity. Recomputed on every call; the inputs are cheap and the catalog
// copy may have been refreshed since the last one.
func (i *Ingredient) AbsoluteNutrition() nutrition.Nutrients {
	q := i.ResolvedQuantity()
	if !q.Exact {
		return nutrition.Nutrients{}
	}
	return i.Nutrients.Scale(q.Grams)
}
