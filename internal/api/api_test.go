package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/receptar-app/backend/config"
	"github.com/receptar-app/backend/internal/model"
	"github.com/receptar-app/backend/internal/nutrition"
	"github.com/receptar-app/backend/internal/testhelpers"
)

func testConfig(dumpURL string) *config.Config {
	return &config.Config{
		CatalogDumpURL:            dumpURL,
		CatalogBatchSize:          100,
		CatalogTargetLang:         "cs",
		CatalogFallbackLang:       "en",
		CatalogProgressEvery:      1000,
		SearchSimilarityThreshold: 0.2,
		SearchDefaultLimit:        15,
		SearchMaxLimit:            50,
		SearchCacheTTL:            time.Minute,
	}
}

func setupRouter(t *testing.T, dumpURL string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testhelpers.NewSQLiteDB(t)
	router := gin.New()
	SetupAPI(router, db, nil, zap.NewNop(), testConfig(dumpURL))
	return router, db
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedCatalogProduct(t *testing.T, db *gorm.DB, code, name string, mutate ...func(*model.FoodProduct)) model.FoodProduct {
	t.Helper()
	p := model.FoodProduct{Code: code, Name: &name, LastSyncedAt: time.Now()}
	for _, m := range mutate {
		m(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedRecipeWithIngredient(t *testing.T, db *gorm.DB, ing model.Ingredient) (model.Recipe, model.Ingredient) {
	t.Helper()
	recipe := model.Recipe{Name: "Testovací recept", Servings: 4}
	require.NoError(t, db.Create(&recipe).Error)
	ing.RecipeID = recipe.ID
	require.NoError(t, db.Create(&ing).Error)
	return recipe, ing
}

func TestSearchEndpoint(t *testing.T) {
	router, db := setupRouter(t, "")
	seedCatalogProduct(t, db, "1", "Mléko polotučné")
	seedCatalogProduct(t, db, "2", "Máslo")

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/search?q=mleko", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []model.FoodProduct `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "1", resp.Results[0].Code)
}

func TestSearchEndpointShortQueryIsNotAnError(t *testing.T) {
	router, db := setupRouter(t, "")
	seedCatalogProduct(t, db, "1", "Mléko")

	for _, path := range []string{"/api/v1/catalog/search", "/api/v1/catalog/search?q=m"} {
		w := doRequest(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)

		var resp struct {
			Results []model.FoodProduct `json:"results"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Results)
	}
}

func TestSearchEndpointLimit(t *testing.T) {
	router, db := setupRouter(t, "")
	for i := 0; i < 10; i++ {
		seedCatalogProduct(t, db, fmt.Sprintf("%d", i), fmt.Sprintf("Jogurt %02d", i))
	}

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/search?q=jogurt&limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []model.FoodProduct `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 3)
}

func TestGetProductEndpoint(t *testing.T) {
	router, db := setupRouter(t, "")
	seedCatalogProduct(t, db, "8594001111111", "Mléko")

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/products/8594001111111", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var product model.FoodProduct
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, "Mléko", *product.Name)

	w = doRequest(router, http.MethodGet, "/api/v1/catalog/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateManualProductEndpoint(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := doRequest(router, http.MethodPost, "/api/v1/catalog/products", gin.H{
		"name":      "Domácí kvásek",
		"nutrients": gin.H{"energy_kcal": 250.0},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var product model.FoodProduct
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.True(t, product.Manual)
	assert.NotEmpty(t, product.Code)

	// Manual entries answer the local autocomplete.
	w = doRequest(router, http.MethodGet, "/api/v1/catalog/search?q=kvasek&local=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Results []model.FoodProduct `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, product.Code, resp.Results[0].Code)

	// Name is required.
	w = doRequest(router, http.MethodPost, "/api/v1/catalog/products", gin.H{"brand": "Farma"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkProductEndpoint(t *testing.T) {
	router, db := setupRouter(t, "")
	weight := 55.0
	seedCatalogProduct(t, db, "111", "Vejce", func(p *model.FoodProduct) {
		p.PieceWeightGrams = &weight
		p.Nutrients = nutrition.Nutrients{EnergyKcal: nutrition.Float(143)}
	})
	_, ing := seedRecipeWithIngredient(t, db, model.Ingredient{Name: "vejce", Amount: 2, Unit: "ks"})

	w := doRequest(router, http.MethodPost, "/api/v1/ingredients/"+ing.ID.String()+"/link", gin.H{"code": "111"})
	require.Equal(t, http.StatusOK, w.Code)

	var linked model.Ingredient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &linked))
	require.NotNil(t, linked.FoodProductCode)
	assert.Equal(t, "111", *linked.FoodProductCode)
	assert.Equal(t, 143.0, *linked.EnergyKcal)
	assert.Equal(t, 55.0, *linked.DefaultPieceWeightGrams)
	assert.NotNil(t, linked.LastSyncedAt)
}

func TestLinkProductEndpointErrors(t *testing.T) {
	router, db := setupRouter(t, "")
	_, ing := seedRecipeWithIngredient(t, db, model.Ingredient{Name: "vejce", Amount: 2, Unit: "ks"})

	w := doRequest(router, http.MethodPost, "/api/v1/ingredients/not-a-uuid/link", gin.H{"code": "111"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/ingredients/"+ing.ID.String()+"/link", gin.H{"code": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/ingredients/"+uuid.NewString()+"/link", gin.H{"code": "111"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngredientNutritionEndpoint(t *testing.T) {
	router, db := setupRouter(t, "")
	_, ing := seedRecipeWithIngredient(t, db, model.Ingredient{
		Name:      "mouka",
		Amount:    150,
		Unit:      "g",
		Nutrients: nutrition.Nutrients{EnergyKcal: nutrition.Float(364), Protein: nutrition.Float(10)},
	})

	w := doRequest(router, http.MethodGet, "/api/v1/ingredients/"+ing.ID.String()+"/nutrition", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Nutrition nutrition.Nutrients `json:"nutrition"`
		Quantity  nutrition.Quantity  `json:"quantity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 150.0, resp.Quantity.Grams)
	assert.Equal(t, 546.0, *resp.Nutrition.EnergyKcal)
	assert.Equal(t, 15.0, *resp.Nutrition.Protein)
}

func TestIngredientNutritionIsRounded(t *testing.T) {
	router, db := setupRouter(t, "")
	_, ing := seedRecipeWithIngredient(t, db, model.Ingredient{
		Name:   "mouka",
		Amount: 150,
		Unit:   "g",
		Nutrients: nutrition.Nutrients{
			EnergyKcal: nutrition.Float(46.3),
			Carbs:      nutrition.Float(76.3),
		},
	})

	w := doRequest(router, http.MethodGet, "/api/v1/ingredients/"+ing.ID.String()+"/nutrition", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Nutrition nutrition.Nutrients `json:"nutrition"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// 76.3 * 1.5 carries binary float error; the response rounds to two
	// decimals and energy to a whole kcal.
	assert.Equal(t, 114.45, *resp.Nutrition.Carbs)
	assert.Equal(t, 69.0, *resp.Nutrition.EnergyKcal)
}

func TestIngredientNutritionUnresolvedQuantity(t *testing.T) {
	router, db := setupRouter(t, "")
	_, ing := seedRecipeWithIngredient(t, db, model.Ingredient{
		Name:      "vejce",
		Amount:    2,
		Unit:      "ks",
		Nutrients: nutrition.Nutrients{EnergyKcal: nutrition.Float(143)},
	})

	w := doRequest(router, http.MethodGet, "/api/v1/ingredients/"+ing.ID.String()+"/nutrition", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Nutrition nutrition.Nutrients `json:"nutrition"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// Pieces without a piece weight cannot be scaled.
	assert.Nil(t, resp.Nutrition.EnergyKcal)
}

func TestAggregateEndpoint(t *testing.T) {
	router, db := setupRouter(t, "")
	recipe, _ := seedRecipeWithIngredient(t, db, model.Ingredient{
		Name:      "cibule",
		Amount:    60,
		Unit:      "g",
		Nutrients: nutrition.Nutrients{EnergyKcal: nutrition.Float(40)},
	})

	w := doRequest(router, http.MethodPost, "/api/v1/plans/aggregate", gin.H{
		"recipes": []gin.H{{"recipe_id": recipe.ID, "occurrences": 5}},
		"items": []gin.H{
			{"name": "Cibule", "amount": 1, "unit": "ks"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var summary nutrition.PlanSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))

	// Grams and pieces of the same ingredient stay separate lines.
	require.Len(t, summary.ShoppingList, 2)
	assert.Equal(t, 300.0, summary.ShoppingList[0].Amount)
	assert.Equal(t, "g", summary.ShoppingList[0].Unit)
	assert.Equal(t, "pcs", summary.ShoppingList[1].Unit)

	require.NotNil(t, summary.Nutrition.EnergyKcal)
	assert.Equal(t, 120.0, *summary.Nutrition.EnergyKcal)
}

func TestAggregateEndpointErrors(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := doRequest(router, http.MethodPost, "/api/v1/plans/aggregate", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/plans/aggregate", gin.H{
		"recipes": []gin.H{{"recipe_id": uuid.New(), "occurrences": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncStatusEndpointWithoutRedis(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := doRequest(router, http.MethodGet, "/api/v1/admin/catalog/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Running bool `json:"running"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Running)
}

func TestTriggerSyncEndpoint(t *testing.T) {
	var dump bytes.Buffer
	gz := gzip.NewWriter(&dump)
	_, err := gz.Write([]byte(`{"code":"999","product_name_cs":"Mléko"}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(dump.Bytes())
	}))
	defer server.Close()

	router, db := setupRouter(t, server.URL)

	w := doRequest(router, http.MethodPost, "/api/v1/admin/catalog/sync", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		var count int64
		return db.Model(&model.FoodProduct{}).Where("code = ?", "999").Count(&count).Error == nil && count == 1
	}, 5*time.Second, 50*time.Millisecond)
}
