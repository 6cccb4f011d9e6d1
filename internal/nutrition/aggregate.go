package nutrition

import (
	"sort"
	"strings"
)

// PlanItem is one ingredient's contribution to an aggregation scope, e.g. a
// recipe ingredient together with how many times that recipe appears in a
// week plan. Occurrences multiplies the contribution exactly once, so
// aggregating the same item with Occurrences 2 equals aggregating two
// copies with Occurrences 1.
type PlanItem struct {
	Name                    string
	Amount                  float64
	Unit                    string
	PieceWeightGrams        *float64
	DefaultPieceWeightGrams *float64
	Per100                  Nutrients
	Occurrences             int
}

// ShoppingLine is one merged entry of the shopping list.
type ShoppingLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// PlanSummary is the result of aggregating a set of plan items.
type PlanSummary struct {
	ShoppingList []ShoppingLine `json:"shopping_list"`
	Nutrition    Nutrients      `json:"nutrition"`
}

// Aggregate merges plan items into a shopping list and a nutrition total.
//
// Shopping lines group by (normalized name, resolved unit): "flour, g" and
// "flour, pcs" stay separate lines. Pieces with a known weight resolve into
// grams before grouping; millilitres and unconverted units keep their own
// label. The nutrition total sums the scaled contribution of every item
// whose quantity resolved; unresolved quantities add nothing rather than a
// fabricated zero-calorie row. Output is alphabetical by name so identical
// input yields identical output.
func Aggregate(items []PlanItem) PlanSummary {
	type group struct {
		name   string // display casing of the first occurrence
		unit   string
		amount float64
	}
	groups := make(map[string]*group)
	var total Nutrients

	for _, item := range items {
		occ := item.Occurrences
		if occ <= 0 {
			continue
		}

		q := ResolveQuantity(item.Amount, item.Unit, item.PieceWeightGrams, item.DefaultPieceWeightGrams)
		name := strings.TrimSpace(item.Name)
		key := strings.ToLower(name) + "\x00" + strings.ToLower(q.Unit)

		g, ok := groups[key]
		if !ok {
			g = &group{name: name, unit: q.Unit}
			groups[key] = g
		}
		g.amount += q.Amount * float64(occ)

		if q.Exact {
			total = total.Add(item.Per100.Scale(q.Grams * float64(occ)))
		}
	}

	lines := make([]ShoppingLine, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, ShoppingLine{Name: g.name, Amount: roundAmount(g.amount), Unit: g.unit})
	}
	sort.Slice(lines, func(i, j int) bool {
		a, b := strings.ToLower(lines[i].Name), strings.ToLower(lines[j].Name)
		if a != b {
			return a < b
		}
		return lines[i].Unit < lines[j].Unit
	})

	return PlanSummary{ShoppingList: lines, Nutrition: total.Round()}
}

func roundAmount(v float64) float64 {
	r := roundField(&v, 2)
	return *r
}
