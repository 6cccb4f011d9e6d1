package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/receptar-app/backend/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned for catalog and ingredient lookup misses.
var ErrNotFound = errors.New("not found")

// SearchConfig bounds the cost of catalog searches.
type SearchConfig struct {
	// SimilarityThreshold is the minimum trigram similarity for a fuzzy
	// candidate to be considered a match.
	SimilarityThreshold float64
	DefaultLimit        int
	MaxLimit            int
}

// CatalogService owns the local food-product catalog: lookups, ranked
// search, batched upserts from the sync, and linking catalog entries onto
// recipe ingredients.
type CatalogService struct {
	db     *gorm.DB
	log    *zap.Logger
	search SearchConfig
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(db *gorm.DB, log *zap.Logger, search SearchConfig) *CatalogService {
	if search.DefaultLimit <= 0 {
		search.DefaultLimit = 15
	}
	if search.MaxLimit <= 0 {
		search.MaxLimit = 50
	}
	if search.SimilarityThreshold <= 0 {
		search.SimilarityThreshold = 0.2
	}
	return &CatalogService{db: db, log: log, search: search}
}

// GetByCode retrieves a catalog entry by its product code.
func (s *CatalogService) GetByCode(ctx context.Context, code string) (*model.FoodProduct, error) {
	var product model.FoodProduct
	if err := s.db.WithContext(ctx).First(&product, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// BatchUpsert writes one batch of catalog entries keyed by product code.
// An existing code is fully replaced (last-write-wins), which makes the
// sync idempotent and safely re-runnable from the start.
func (s *CatalogService) BatchUpsert(ctx context.Context, products []model.FoodProduct) error {
	if len(products) == 0 {
		return nil
	}
	now := time.Now()
	for i := range products {
		products[i].LastSyncedAt = now
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(&products).Error
	if err != nil {
		return fmt.Errorf("upserting catalog batch: %w", err)
	}
	return nil
}

// CreateManual stores an admin-typed catalog entry. A missing code gets a
// generated one so manual entries never collide with dump barcodes.
func (s *CatalogService) CreateManual(ctx context.Context, product *model.FoodProduct) error {
	product.Manual = true
	if strings.TrimSpace(product.Code) == "" {
		product.Code = "local-" + uuid.NewString()
	}
	product.LastSyncedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("creating manual catalog entry: %w", err)
	}
	return nil
}

// LinkIngredient maps a catalog entry onto an ingredient's nutrition copy
// and records the sync time. Fails with ErrNotFound when either side is
// missing.
func (s *CatalogService) LinkIngredient(ctx context.Context, ingredientID uuid.UUID, code string) (*model.Ingredient, error) {
	product, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var ingredient model.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, "id = ?", ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := time.Now()
	ingredient.FoodProductCode = &product.Code
	ingredient.Nutrients = product.Nutrients
	ingredient.DefaultPieceWeightGrams = product.PieceWeightGrams
	ingredient.LastSyncedAt = &now

	if err := s.db.WithContext(ctx).Save(&ingredient).Error; err != nil {
		return nil, fmt.Errorf("persisting ingredient link: %w", err)
	}

	s.log.Info("linked ingredient to catalog entry",
		zap.String("ingredient_id", ingredientID.String()),
		zap.String("code", code))
	return &ingredient, nil
}
