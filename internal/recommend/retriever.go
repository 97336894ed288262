// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/platefinder/internal/recommend/vectorindex"
)

// ItemSource provides menu items to the core. Read-only; implemented by
// the ingestion layer.
type ItemSource interface {
	// GetItem returns one item by id, or ErrItemNotFound.
	GetItem(ctx context.Context, id string) (*MenuItem, error)

	// GetMenu returns all items for a restaurant.
	GetMenu(ctx context.Context, restaurantID string) ([]MenuItem, error)
}

// Retriever assembles safety-filtered candidate pools. Safety filters
// (allergens, dietary rules) are applied before any scoring and never
// depend on learned components.
type Retriever struct {
	config  RetrievalConfig
	limits  LimitsConfig
	logger  zerolog.Logger
	items   ItemSource
	index   *vectorindex.Handle
	breaker *gobreaker.CircuitBreaker[[]vectorindex.Result]
}

// NewRetriever creates a candidate retriever.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRetriever(cfg RetrievalConfig, limits LimitsConfig, items ItemSource, index *vectorindex.Handle, logger zerolog.Logger) *Retriever {
	settings := gobreaker.Settings{
		Name:    "vector-index",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &Retriever{
		config:  cfg,
		limits:  limits,
		logger:  logger.With().Str("component", "retriever").Logger(),
		items:   items,
		index:   index,
		breaker: gobreaker.NewCircuitBreaker[[]vectorindex.Result](settings),
	}
}

// Retrieve returns the ordered candidate pool for a request. Items in
// exclude are never returned. If fewer safe candidates than requested
// exist, all available ones are returned with Insufficient set; this is
// never an error.
func (r *Retriever) Retrieve(ctx context.Context, profile *UserTasteProfile, restaurantID string, intent MealIntent, taste TasteVector, count int, exclude map[string]struct{}) (*RetrievalResult, error) {
	if count <= 0 {
		count = r.limits.DefaultCount
	}

	poolSize := count * r.config.PoolMultiplier
	if poolSize < r.config.MinPoolSize {
		poolSize = r.config.MinPoolSize
	}

	menu, err := r.items.GetMenu(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("get menu: %w", err)
	}

	safe := r.filterSafe(menu, profile, intent, exclude)
	if len(safe) == 0 {
		return &RetrievalResult{Candidates: []Candidate{}, Insufficient: true}, nil
	}

	candidates, fallback := r.rank(ctx, safe, taste, poolSize)

	return &RetrievalResult{
		Candidates:   candidates,
		Insufficient: len(candidates) < count,
		Fallback:     fallback,
	}, nil
}

// filterSafe applies the non-negotiable safety filters plus intent and
// exclusion filtering. The allergen and dietary checks are absolute: a
// violating item fails regardless of any score it might have earned.
func (r *Retriever) filterSafe(menu []MenuItem, profile *UserTasteProfile, intent MealIntent, exclude map[string]struct{}) []MenuItem {
	eligible := eligibleCategories(intent)

	safe := make([]MenuItem, 0, len(menu))
	for i := range menu {
		item := &menu[i]

		if _, skip := exclude[item.ID]; skip {
			continue
		}
		if _, ok := eligible[item.Category]; !ok {
			continue
		}
		if item.HasAllergen(profile.Allergies) {
			continue
		}
		if !item.SatisfiesDiet(profile.DietaryRules) {
			continue
		}

		safe = append(safe, *item)
	}
	return safe
}

// rank orders the safe pool by embedding similarity via the vector
// index, falling back to an exact taste-cosine scan when the index is
// unavailable. Scoring semantics are equivalent on both paths; fallback
// results are marked so cost expectations can differ downstream.
func (r *Retriever) rank(ctx context.Context, safe []MenuItem, taste TasteVector, poolSize int) ([]Candidate, bool) {
	byID := make(map[string]*MenuItem, len(safe))
	for i := range safe {
		byID[safe[i].ID] = &safe[i]
	}

	results, err := r.queryIndex(ctx, safe, taste, poolSize)
	if err != nil {
		r.logger.Warn().Err(err).Msg("vector index unavailable, using exact scan")
		return r.exactScan(safe, taste, poolSize), true
	}

	candidates := make([]Candidate, 0, poolSize)
	for _, res := range results {
		item, ok := byID[res.ID]
		if !ok {
			continue // outside this restaurant's safe pool
		}
		candidates = append(candidates, Candidate{
			Item:           *item,
			RetrievalScore: res.Score,
		})
		if len(candidates) == poolSize {
			break
		}
	}

	// The index can under-deliver for the restaurant scope; top up from
	// the exact scan without duplicating ids.
	if len(candidates) < poolSize && len(candidates) < len(safe) {
		seen := make(map[string]struct{}, len(candidates))
		for i := range candidates {
			seen[candidates[i].Item.ID] = struct{}{}
		}
		for _, c := range r.exactScan(safe, taste, poolSize) {
			if _, dup := seen[c.Item.ID]; dup {
				continue
			}
			candidates = append(candidates, c)
			if len(candidates) == poolSize {
				break
			}
		}
	}

	return candidates, false
}

// queryIndex runs the ANN query through the circuit breaker.
func (r *Retriever) queryIndex(ctx context.Context, safe []MenuItem, taste TasteVector, poolSize int) ([]vectorindex.Result, error) {
	idx := r.index.Get()
	if idx == nil {
		return nil, ErrIndexUnavailable
	}

	probe := r.buildProbe(safe, taste, idx.Dimension())

	queryCtx, cancel := context.WithTimeout(ctx, r.limits.QueryTimeout)
	defer cancel()

	return r.breaker.Execute(func() ([]vectorindex.Result, error) {
		if err := queryCtx.Err(); err != nil {
			return nil, err
		}
		// Over-fetch: the index spans all restaurants, the pool is
		// scoped to one.
		return idx.Query(probe, poolSize*4)
	})
}

// buildProbe derives the query embedding as the taste-similarity-weighted
// centroid of the safe pool's embeddings. Deterministic given the same
// taste sample and menu.
func (r *Retriever) buildProbe(safe []MenuItem, taste TasteVector, dim int) []float64 {
	probe := make([]float64, dim)
	for i := range safe {
		item := &safe[i]
		if len(item.Embedding) != dim {
			continue
		}
		w := tasteCosine(taste, item.Taste)
		if w <= 0 {
			continue
		}
		for d, v := range item.Embedding {
			probe[d] += w * v
		}
	}
	return probe
}

// exactScan is the fallback path: cosine similarity over the full taste
// feature vectors, identical filter semantics to the index path.
func (r *Retriever) exactScan(safe []MenuItem, taste TasteVector, poolSize int) []Candidate {
	candidates := make([]Candidate, 0, len(safe))
	for i := range safe {
		candidates = append(candidates, Candidate{
			Item:           safe[i],
			RetrievalScore: tasteCosine(taste, safe[i].Taste),
			Fallback:       true,
		})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].RetrievalScore != candidates[b].RetrievalScore {
			return candidates[a].RetrievalScore > candidates[b].RetrievalScore
		}
		return candidates[a].Item.ID < candidates[b].Item.ID
	})

	if len(candidates) > poolSize {
		candidates = candidates[:poolSize]
	}
	return candidates
}

// eligibleCategories maps a meal intent to the categories it may draw
// from. Breakfast eligibility is still subject to the reranker's
// time-of-day gate.
func eligibleCategories(intent MealIntent) map[Category]struct{} {
	switch intent {
	case IntentMainOnly:
		return categorySet(CategoryMain, CategoryBreakfast)
	case IntentAppetizerOnly:
		return categorySet(CategoryAppetizer)
	case IntentDessertOnly:
		return categorySet(CategoryDessert)
	case IntentBeverageOnly:
		return categorySet(CategoryBeverage)
	case IntentLightSnack:
		return categorySet(CategoryAppetizer, CategorySide, CategoryBeverage)
	default: // IntentFullMeal
		return categorySet(CategoryAppetizer, CategoryMain, CategoryDessert, CategoryBeverage, CategorySide, CategoryBreakfast)
	}
}

func categorySet(cats ...Category) map[Category]struct{} {
	set := make(map[Category]struct{}, len(cats))
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set
}

// tasteCosine returns cosine similarity between two taste vectors.
func tasteCosine(a, b TasteVector) float64 {
	var dot, na, nb float64
	for i := 0; i < TasteDimensions; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
