package nutrition

import "strings"

// Canonical units. Every recognized user-entered unit spelling normalizes to
// one of these before any computation happens.
const (
	UnitGram       = "g"
	UnitMilliliter = "ml"
	UnitPiece      = "pcs"
)

// Legacy volumetric units kept for recipes imported from the old catalog.
// They resolve to a fixed gram equivalent.
const (
	unitTablespoon = "tbsp"
	unitTeaspoon   = "tsp"
	unitCup        = "cup"
	unitMug        = "mug"
)

// unitAliases enumerates every accepted unit spelling (Czech and English)
// and maps it to its canonical unit. Lookups are lower-cased and trimmed.
var unitAliases = map[string]string{
	"g":       UnitGram,
	"gram":    UnitGram,
	"grams":   UnitGram,
	"gramy":   UnitGram,
	"gramu":   UnitGram,
	"gramů":   UnitGram,
	"ml":      UnitMilliliter,
	"mililitr":    UnitMilliliter,
	"mililitry":   UnitMilliliter,
	"milliliter":  UnitMilliliter,
	"millilitre":  UnitMilliliter,
	"pcs":     UnitPiece,
	"pc":      UnitPiece,
	"piece":   UnitPiece,
	"pieces":  UnitPiece,
	"ks":      UnitPiece,
	"kus":     UnitPiece,
	"kusy":    UnitPiece,
	"kusů":    UnitPiece,
	"tbsp":       unitTablespoon,
	"tablespoon":  unitTablespoon,
	"lžíce":      unitTablespoon,
	"lzice":      unitTablespoon,
	"tsp":        unitTeaspoon,
	"teaspoon":   unitTeaspoon,
	"lžička":     unitTeaspoon,
	"lzicka":     unitTeaspoon,
	"cup":     unitCup,
	"hrnek":   unitCup,
	"mug":     unitMug,
	"šálek":   unitMug,
	"salek":   unitMug,
}

// volumetricGrams maps a legacy volumetric unit to the gram equivalent of
// one unit of it.
var volumetricGrams = map[string]float64{
	unitTablespoon: 10,
	unitTeaspoon:   5,
	unitCup:        200,
	unitMug:        250,
}

// CanonicalUnit normalizes a user-entered unit spelling. The second return
// value is false when the spelling is not in the alias table; callers must
// then keep the original text as the display label.
func CanonicalUnit(raw string) (string, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]
	return u, ok
}

// Quantity is the result of resolving a user-entered (amount, unit) pair to
// the common mass basis used for nutrition scaling and shopping aggregation.
type Quantity struct {
	// Amount expressed in Unit. For converted volumetric units and pieces
	// with a known weight this is already the gram amount.
	Amount float64 `json:"amount"`
	// Unit is the canonical unit of Amount; when the input unit was not
	// recognized it is the original text, unmodified.
	Unit string `json:"unit"`
	// Grams is the mass basis for nutrition scaling. Zero when the quantity
	// could not be resolved.
	Grams float64 `json:"grams"`
	// Exact reports whether Grams is a faithful conversion of the input.
	// When false, downstream nutrient values must be treated as absent.
	Exact bool `json:"exact"`
}

// ResolveQuantity converts an amount with a user-entered unit into grams.
//
// Millilitres are treated as grams 1:1 (density is not modeled). Pieces use
// the ingredient's own per-piece weight when set, otherwise the catalog
// default; with neither available the quantity is unresolved. Legacy
// volumetric units convert through the fixed table above. Unrecognized
// units pass the amount through unchanged with Exact=false so the caller
// never silently relabels them as grams.
func ResolveQuantity(amount float64, unit string, pieceWeight, defaultPieceWeight *float64) Quantity {
	canon, ok := CanonicalUnit(unit)
	if !ok {
		return Quantity{Amount: amount, Unit: strings.TrimSpace(unit), Grams: amount, Exact: false}
	}

	switch canon {
	case UnitGram, UnitMilliliter:
		return Quantity{Amount: amount, Unit: canon, Grams: amount, Exact: true}
	case UnitPiece:
		w := 0.0
		if pieceWeight != nil && *pieceWeight > 0 {
			w = *pieceWeight
		} else if defaultPieceWeight != nil && *defaultPieceWeight > 0 {
			w = *defaultPieceWeight
		}
		if w == 0 {
			return Quantity{Amount: amount, Unit: UnitPiece, Grams: 0, Exact: false}
		}
		g := amount * w
		return Quantity{Amount: g, Unit: UnitGram, Grams: g, Exact: true}
	}

	// Legacy volumetric unit.
	g := amount * volumetricGrams[canon]
	return Quantity{Amount: g, Unit: UnitGram, Grams: g, Exact: true}
}
