package service

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/receptar-app/backend/internal/model"
	"github.com/receptar-app/backend/internal/nutrition"
)

// Field aliases of the dump format, enumerated in one place so every
// record goes through the same normalization instead of ad hoc
// null-coalescing at call sites.
var (
	imageKeys = []string{"image_front_small_url", "image_front_url", "image_url"}

	energyKcalKeys   = []string{"energy-kcal_100g", "energy-kcal"}
	energyKjKeys     = []string{"energy-kj_100g", "energy_100g"}
	proteinKeys      = []string{"proteins_100g", "proteins"}
	carbsKeys        = []string{"carbohydrates_100g", "carbohydrates"}
	sugarsKeys       = []string{"sugars_100g", "sugars"}
	fatKeys          = []string{"fat_100g", "fat"}
	saturatedFatKeys = []string{"saturated-fat_100g", "saturated-fat"}
	fiberKeys        = []string{"fiber_100g", "fibre_100g", "fiber"}
	sodiumKeys       = []string{"sodium_100g", "sodium"}
)

const kcalPerKilojoule = 1 / 4.184

// mapProduct parses one dump line into a catalog entry. It returns false
// when the line is malformed, lacks a product code, or fails the region
// filter; such a line still counts as processed, it just saves nothing.
// All "absent vs zero" decisions for nutrients happen here, once.
func mapProduct(line []byte, opts SyncOptions) (*model.FoodProduct, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, false
	}

	code := strings.TrimSpace(stringField(raw, "code"))
	if code == "" {
		return nil, false
	}

	if opts.StrictRegion && !hasTag(raw, "countries_tags", opts.RegionTag) {
		return nil, false
	}

	product := &model.FoodProduct{Code: code}

	// Language-preferential name selection; a record without any usable
	// name is still stored under its code.
	nameKeys := []string{
		"product_name_" + opts.TargetLang,
		"product_name_" + opts.FallbackLang,
		"product_name",
		"generic_name",
	}
	for _, key := range nameKeys {
		if v := strings.TrimSpace(stringField(raw, key)); v != "" {
			product.Name = &v
			break
		}
	}
	if v := strings.TrimSpace(stringField(raw, "product_name_"+opts.TargetLang)); v != "" {
		product.NameLocalized = &v
	}

	product.Brand = strings.TrimSpace(stringField(raw, "brands"))
	product.Quantity = strings.TrimSpace(stringField(raw, "quantity"))
	for _, key := range imageKeys {
		if v := stringField(raw, key); v != "" {
			product.ImageURL = v
			break
		}
	}

	// Serving quantity in grams doubles as the default piece weight.
	if unit := stringField(raw, "serving_quantity_unit"); unit == "" || unit == "g" {
		if w, ok := floatField(raw, "serving_quantity"); ok && w > 0 {
			product.PieceWeightGrams = &w
		}
	}

	nutriments, _ := raw["nutriments"].(map[string]any)
	product.Nutrients = mapNutrients(nutriments)

	return product, true
}

// mapNutrients extracts the per-100 g values: unparsable or
// non-finite values become absent, never zero or NaN.
func mapNutrients(nutriments map[string]any) nutrition.Nutrients {
	if nutriments == nil {
		return nutrition.Nutrients{}
	}

	energy := firstFloat(nutriments, energyKcalKeys)
	if energy == nil {
		// Some records carry only kilojoules.
		if kj := firstFloat(nutriments, energyKjKeys); kj != nil {
			energy = nutrition.Float(*kj * kcalPerKilojoule)
		}
	}

	return nutrition.Nutrients{
		EnergyKcal:   energy,
		Protein:      firstFloat(nutriments, proteinKeys),
		Carbs:        firstFloat(nutriments, carbsKeys),
		Sugars:       firstFloat(nutriments, sugarsKeys),
		Fat:          firstFloat(nutriments, fatKeys),
		SaturatedFat: firstFloat(nutriments, saturatedFatKeys),
		Fiber:        firstFloat(nutriments, fiberKeys),
		Sodium:       firstFloat(nutriments, sodiumKeys),
	}
}

func firstFloat(m map[string]any, keys []string) *float64 {
	for _, key := range keys {
		if v, ok := floatField(m, key); ok {
			return &v
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func floatField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, false
		}
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func hasTag(m map[string]any, key, tag string) bool {
	tags, _ := m[key].([]any)
	for _, t := range tags {
		if s, ok := t.(string); ok && strings.EqualFold(s, tag) {
			return true
		}
	}
	return false
}
