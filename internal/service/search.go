package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/receptar-app/backend/internal/model"
	"gorm.io/gorm/clause"
)

// candidateCap bounds how many rows the store may hand to the ranker for a
// single query, independently of the caller's limit.
const candidateCap = 200

// Search performs the ranked fuzzy catalog lookup for a free-text
// ingredient name. Queries shorter than two characters return an empty
// result immediately. Matching is accent-insensitive substring containment
// or trigram similarity above the configured threshold, across name,
// localized name and brand; ranking is exact name, exact brand, name
// similarity, brand similarity, then name alphabetically, and is stable for
// identical inputs.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]model.FoodProduct, error) {
	return s.searchRanked(ctx, query, limit, false)
}

// SearchLocal is the autocomplete path over admin-typed catalog entries.
// It applies the same ranking rules as Search, additionally preferring rows
// whose localized name matches over rows matching only on the base name.
func (s *CatalogService) SearchLocal(ctx context.Context, query string, limit int) ([]model.FoodProduct, error) {
	return s.searchRanked(ctx, query, limit, true)
}

func (s *CatalogService) searchRanked(ctx context.Context, query string, limit int, localOnly bool) ([]model.FoodProduct, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < 2 {
		return []model.FoodProduct{}, nil
	}

	if limit <= 0 {
		limit = s.search.DefaultLimit
	}
	if limit > s.search.MaxLimit {
		limit = s.search.MaxLimit
	}

	candidates, err := s.searchCandidates(ctx, q, localOnly)
	if err != nil {
		return nil, fmt.Errorf("fetching search candidates: %w", err)
	}

	ranked := rankProducts(q, candidates, s.search.SimilarityThreshold, localOnly)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// searchCandidates narrows the catalog to plausible rows before the
// in-process ranking. On Postgres the candidate set is capped, so it must
// be cut deterministically: best similarity first, code as the tie-break.
// Without the ORDER BY the cap would keep whichever rows the scan happened
// to visit first and identical queries could return different results.
func (s *CatalogService) searchCandidates(ctx context.Context, query string, localOnly bool) ([]model.FoodProduct, error) {
	db := s.db.WithContext(ctx).Model(&model.FoodProduct{})
	if localOnly {
		db = db.Where("manual = ?", true)
	}

	if s.db.Dialector.Name() == "postgres" {
		like := "%" + fold(query) + "%"
		th := s.search.SimilarityThreshold
		db = db.Where(`
			f_unaccent(lower(coalesce(name, ''))) LIKE ?
			OR f_unaccent(lower(coalesce(name_localized, ''))) LIKE ?
			OR f_unaccent(lower(brand)) LIKE ?
			OR similarity(f_unaccent(lower(coalesce(name, ''))), f_unaccent(lower(?))) >= ?
			OR similarity(f_unaccent(lower(coalesce(name_localized, ''))), f_unaccent(lower(?))) >= ?
			OR similarity(f_unaccent(lower(brand)), f_unaccent(lower(?))) >= ?`,
			like, like, like, query, th, query, th, query, th,
		).Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL: `greatest(
					similarity(f_unaccent(lower(coalesce(name, ''))), f_unaccent(lower(?))),
					similarity(f_unaccent(lower(coalesce(name_localized, ''))), f_unaccent(lower(?))),
					similarity(f_unaccent(lower(brand)), f_unaccent(lower(?)))
				) DESC, code`,
				Vars: []interface{}{query, query, query},
			},
		}).Limit(candidateCap)
	}
	// Non-PostgreSQL databases (unit tests) rank over the full table.

	var rows []model.FoodProduct
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type rankedProduct struct {
	product        model.FoodProduct
	exactName      bool
	localizedMatch bool
	exactBrand     bool
	nameSim        float64
	brandSim       float64
	sortName       string
}

// rankProducts filters candidates by containment-or-similarity and orders
// them deterministically. The same ranker runs regardless of which store
// dialect produced the candidates, so result order never depends on the
// database's internal row order.
func rankProducts(query string, candidates []model.FoodProduct, threshold float64, preferLocalized bool) []model.FoodProduct {
	fq := fold(query)

	ranked := make([]rankedProduct, 0, len(candidates))
	for _, p := range candidates {
		var name, localized string
		if p.Name != nil {
			name = fold(*p.Name)
		}
		if p.NameLocalized != nil {
			localized = fold(*p.NameLocalized)
		}
		brand := fold(p.Brand)

		nameSim := similarity(name, fq)
		if ls := similarity(localized, fq); ls > nameSim {
			nameSim = ls
		}
		brandSim := similarity(brand, fq)

		contains := substringMatch(name, fq) || substringMatch(localized, fq) || substringMatch(brand, fq)
		if !contains && nameSim < threshold && brandSim < threshold {
			continue
		}

		ranked = append(ranked, rankedProduct{
			product:        p,
			exactName:      (name != "" && name == fq) || (localized != "" && localized == fq),
			localizedMatch: localized != "" && (localized == fq || strings.Contains(localized, fq)),
			exactBrand:     brand != "" && brand == fq,
			nameSim:        nameSim,
			brandSim:       brandSim,
			sortName:       strings.ToLower(p.DisplayName()),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.exactName != b.exactName {
			return a.exactName
		}
		if preferLocalized && a.localizedMatch != b.localizedMatch {
			return a.localizedMatch
		}
		if a.exactBrand != b.exactBrand {
			return a.exactBrand
		}
		if a.nameSim != b.nameSim {
			return a.nameSim > b.nameSim
		}
		if a.brandSim != b.brandSim {
			return a.brandSim > b.brandSim
		}
		if a.sortName != b.sortName {
			return a.sortName < b.sortName
		}
		return a.product.Code < b.product.Code
	})

	out := make([]model.FoodProduct, len(ranked))
	for i := range ranked {
		out[i] = ranked[i].product
	}
	return out
}

func substringMatch(haystack, needle string) bool {
	return haystack != "" && strings.Contains(haystack, needle)
}
