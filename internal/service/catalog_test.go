package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/receptar-app/backend/internal/model"
	"github.com/receptar-app/backend/internal/nutrition"
	"github.com/receptar-app/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestCatalog(t *testing.T) (*CatalogService, *gorm.DB) {
	db := testhelpers.NewSQLiteDB(t)
	svc := NewCatalogService(db, zap.NewNop(), SearchConfig{
		SimilarityThreshold: 0.2,
		DefaultLimit:        15,
		MaxLimit:            50,
	})
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB, code, name, brand string, mutate ...func(*model.FoodProduct)) model.FoodProduct {
	t.Helper()
	p := model.FoodProduct{Code: code, Name: &name, Brand: brand, LastSyncedAt: time.Now()}
	for _, m := range mutate {
		m(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestGetByCode(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedProduct(t, db, "8594001111111", "Mléko", "Farma")

	p, err := svc.GetByCode(context.Background(), "8594001111111")
	require.NoError(t, err)
	assert.Equal(t, "Mléko", *p.Name)

	_, err = svc.GetByCode(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchShortQueryReturnsEmpty(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedProduct(t, db, "1", "Mléko", "Farma")

	for _, q := range []string{"", "m", " a "} {
		results, err := svc.Search(context.Background(), q, 10)
		require.NoError(t, err)
		assert.Empty(t, results, "query %q", q)
	}
}

func TestSearchExactNameFirst(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedProduct(t, db, "1", "Mléko polotučné", "Madeta")
	seedProduct(t, db, "2", "Mléko", "Farma")
	seedProduct(t, db, "3", "Kozí mléko", "Dvůr")

	results, err := svc.Search(context.Background(), "mléko", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "2", results[0].Code)
}

func TestSearchAccentInsensitive(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedProduct(t, db, "1", "Mléko", "Farma")

	results, err := svc.Search(context.Background(), "mleko", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].Code)
}

func TestSearchTypoFindsTrigramMatch(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedProduct(t, db, "1", "Mléko", "Farma")
	seedProduct(t, db, "2", "Kukuřičné lupínky", "Bona Vita")
	seedProduct(t, db, "3", "Máslo", "Madeta")

	// "mlk" has no substring hit anywhere; only the trigram path can find
	// the milk, and unrelated products must not outrank it.
	results, err := svc.Search(context.Background(), "mlk", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].Code)
}

func TestSearchBrandMatch(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedProduct(t, db, "1", "Čerstvé máslo", "Farma")
	seedProduct(t, db, "2", "Farmářský chléb", "Pekárna")

	results, err := svc.Search(context.Background(), "farma", 10)
	require.NoError(t, err)
	require.True(t, len(results) >= 2)
	// Exact brand match outranks a name that merely contains the query.
	assert.Equal(t, "1", results[0].Code)
}

func TestSearchLimitBounds(t *testing.T) {
	svc, db := newTestCatalog(t)
	for i := 0; i < 60; i++ {
		seedProduct(t, db, fmt.Sprintf("code-%02d", i), fmt.Sprintf("Testovací produkt %02d", i), "")
	}

	// Default limit when the caller passes none.
	results, err := svc.Search(context.Background(), "testovací", 0)
	require.NoError(t, err)
	assert.Len(t, results, 15)

	// The hard ceiling applies regardless of the requested limit.
	results, err = svc.Search(context.Background(), "testovací", 1000)
	require.NoError(t, err)
	assert.Len(t, results, 50)

	results, err = svc.Search(context.Background(), "testovací", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchDeterministicOrder(t *testing.T) {
	svc, db := newTestCatalog(t)
	// Equal-similarity rows force the alphabetical and code tie-breaks.
	seedProduct(t, db, "b", "Jogurt bílý", "Olma")
	seedProduct(t, db, "a", "Jogurt bílý", "Olma")
	seedProduct(t, db, "c", "Jogurt jahodový", "Olma")

	first, err := svc.Search(context.Background(), "jogurt", 10)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := svc.Search(context.Background(), "jogurt", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].Code)
	assert.Equal(t, "b", first[1].Code)
}

func TestSearchLocalOnlyManualEntries(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedProduct(t, db, "1", "Mouka hladká", "Babiččina")
	localized := "Mouka hladká"
	base := "Wheat flour"
	seedProduct(t, db, "2", base, "", func(p *model.FoodProduct) {
		p.Manual = true
		p.NameLocalized = &localized
	})
	seedProduct(t, db, "3", "Mouka polohrubá", "", func(p *model.FoodProduct) {
		p.Manual = true
	})

	results, err := svc.SearchLocal(context.Background(), "mouka hladká", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Dump entries are excluded, and the localized-name match is boosted
	// over the base-name one.
	assert.Equal(t, "2", results[0].Code)
	assert.Equal(t, "3", results[1].Code)
}

func TestBatchUpsertIdempotent(t *testing.T) {
	svc, db := newTestCatalog(t)

	name := "Mléko"
	batch := []model.FoodProduct{
		{Code: "100", Name: &name, Nutrients: nutrition.Nutrients{EnergyKcal: nutrition.Float(64)}},
		{Code: "200", Brand: "Farma"},
	}
	require.NoError(t, svc.BatchUpsert(context.Background(), batch))
	require.NoError(t, svc.BatchUpsert(context.Background(), batch))

	var count int64
	require.NoError(t, db.Model(&model.FoodProduct{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestBatchUpsertOverwrites(t *testing.T) {
	svc, db := newTestCatalog(t)

	old := "Staré jméno"
	require.NoError(t, svc.BatchUpsert(context.Background(), []model.FoodProduct{
		{Code: "100", Name: &old, Nutrients: nutrition.Nutrients{EnergyKcal: nutrition.Float(100)}},
	}))

	updated := "Nové jméno"
	require.NoError(t, svc.BatchUpsert(context.Background(), []model.FoodProduct{
		{Code: "100", Name: &updated, Nutrients: nutrition.Nutrients{EnergyKcal: nutrition.Float(64)}},
	}))

	p, err := svc.GetByCode(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "Nové jméno", *p.Name)
	assert.Equal(t, 64.0, *p.EnergyKcal)
	assert.False(t, p.LastSyncedAt.IsZero())

	var count int64
	require.NoError(t, db.Model(&model.FoodProduct{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateManual(t *testing.T) {
	svc, _ := newTestCatalog(t)

	name := "Domácí chléb"
	p := model.FoodProduct{Name: &name}
	require.NoError(t, svc.CreateManual(context.Background(), &p))
	assert.True(t, p.Manual)
	assert.NotEmpty(t, p.Code)

	got, err := svc.GetByCode(context.Background(), p.Code)
	require.NoError(t, err)
	assert.Equal(t, "Domácí chléb", *got.Name)
}

func TestLinkIngredient(t *testing.T) {
	svc, db := newTestCatalog(t)

	recipe := model.Recipe{Name: "Palačinky"}
	require.NoError(t, db.Create(&recipe).Error)
	ingredient := model.Ingredient{RecipeID: recipe.ID, Name: "mléko", Amount: 250, Unit: "ml"}
	require.NoError(t, db.Create(&ingredient).Error)

	seedProduct(t, db, "8594001111111", "Mléko", "Farma", func(p *model.FoodProduct) {
		p.Nutrients = nutrition.Nutrients{EnergyKcal: nutrition.Float(64), Protein: nutrition.Float(3.3)}
		p.PieceWeightGrams = nutrition.Float(1000)
	})

	linked, err := svc.LinkIngredient(context.Background(), ingredient.ID, "8594001111111")
	require.NoError(t, err)
	require.NotNil(t, linked.FoodProductCode)
	assert.Equal(t, "8594001111111", *linked.FoodProductCode)
	assert.Equal(t, 64.0, *linked.EnergyKcal)
	assert.Equal(t, 3.3, *linked.Protein)
	assert.Equal(t, 1000.0, *linked.DefaultPieceWeightGrams)
	require.NotNil(t, linked.LastSyncedAt)

	// Unresolvable code fails without touching the ingredient.
	_, err = svc.LinkIngredient(context.Background(), ingredient.ID, "no-such-code")
	assert.ErrorIs(t, err, ErrNotFound)

	// Unknown ingredient.
	_, err = svc.LinkIngredient(context.Background(), uuid.New(), "8594001111111")
	assert.ErrorIs(t, err, ErrNotFound)
}
