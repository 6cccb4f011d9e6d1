package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe is the owning row for ingredients. The recipe CRUD surface lives
// in the web layer; the nutrition core only needs the anchor and the
// ingredient relation.
type Recipe struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `gorm:"size:255;not null" json:"name"`
	Servings int    `gorm:"default:1" json:"servings"`

	Ingredients []Ingredient `gorm:"foreignKey:RecipeID" json:"ingredients,omitempty"`
}

// BeforeCreate assigns the row ID; generated in the application so SQLite
// test databases behave the same as PostgreSQL.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
