package model

import (
	"time"

	"github.com/receptar-app/backend/internal/nutrition"
)

// FoodProduct is one canonical nutrition record of the local catalog, keyed
// by the external product code. Rows are created and overwritten by the
// catalog sync and are read-only everywhere else.
type FoodProduct struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Code is the unique external product code (barcode for dump imports,
	// a generated code for admin-typed entries).
	Code string `gorm:"size:64;uniqueIndex;not null" json:"code"`

	// Name may be null: a dump record without any usable name is still
	// worth keeping for its code and nutrients.
	Name          *string `gorm:"size:512" json:"name"`
	NameLocalized *string `gorm:"size:512" json:"name_localized,omitempty"`
	Brand         string  `gorm:"size:255" json:"brand"`
	Quantity      string  `gorm:"size:64" json:"quantity"`
	ImageURL      string  `gorm:"size:512" json:"image_url"`

	// PieceWeightGrams is the default weight of one piece of the product,
	// used when an ingredient is measured in pieces without its own
	// override.
	PieceWeightGrams *float64 `json:"piece_weight_grams,omitempty"`

	// Per-100 g nutrient values. Nil means unknown.
	nutrition.Nutrients `gorm:"embedded" json:"nutrients"`

	// Manual marks catalog entries typed in by administrators rather than
	// imported from the dump.
	Manual bool `gorm:"index" json:"manual"`

	LastSyncedAt time.Time `json:"last_synced_at"`
}

// DisplayName prefers the localized name over the base name.
func (p *FoodProduct) DisplayName() string {
	if p.NameLocalized != nil && *p.NameLocalized != "" {
		return *p.NameLocalized
	}
	if p.Name != nil {
		return *p.Name
	}
	return ""
}
