// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// ConfidenceSource is an optional capability returning a confidence
// value for items whose attributes were inferred. The reranker functions
// correctly with this capability entirely absent: the deterministic
// fallback is the item's own stored confidence.
type ConfidenceSource interface {
	// Confidence returns a value in [0, 1] for the item.
	Confidence(ctx context.Context, item *MenuItem) (float64, error)
}

// Reranker scores candidates with the composite relevance model:
//
//	score = w_taste*cos(user, item) + w_cuisine*affinity +
//	        w_pop*popularity + w_explore*exploration_bonus
//
// Weights come from the user's learned vector when available, otherwise
// the configured defaults. Context adjustments apply as multiplicative
// modifiers; the breakfast time-of-day gate is a hard zero, not a
// penalty.
type Reranker struct {
	config     ScoringConfig
	logger     zerolog.Logger
	confidence ConfidenceSource
}

// NewReranker creates a reranker. confidence may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReranker(cfg ScoringConfig, confidence ConfidenceSource, logger zerolog.Logger) *Reranker {
	return &Reranker{
		config:     cfg,
		logger:     logger.With().Str("component", "reranker").Logger(),
		confidence: confidence,
	}
}

// Rerank scores every candidate in place and returns the slice reordered
// by descending rerank score, ties broken by retrieval score then id.
func (r *Reranker) Rerank(ctx context.Context, candidates []Candidate, profile *UserTasteProfile, taste TasteVector, sctx SessionContext) []Candidate {
	weights := r.effectiveWeights(profile)
	blend := r.coldStartBlend(profile)

	for i := range candidates {
		candidates[i].RerankScore = r.score(ctx, &candidates[i], profile, taste, sctx, weights, blend)
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].RerankScore != candidates[b].RerankScore {
			return candidates[a].RerankScore > candidates[b].RerankScore
		}
		if candidates[a].RetrievalScore != candidates[b].RetrievalScore {
			return candidates[a].RetrievalScore > candidates[b].RetrievalScore
		}
		return candidates[a].Item.ID < candidates[b].Item.ID
	})

	return candidates
}

// effectiveWeights returns the user's learned weights once any feedback
// has been absorbed, otherwise the global defaults.
func (r *Reranker) effectiveWeights(profile *UserTasteProfile) ScoringWeights {
	if profile.InteractionCount > 0 && profile.Weights.Sum() > 0 {
		return profile.Weights.Normalize()
	}
	return r.config.DefaultWeights.Normalize()
}

// coldStartBlend returns the population-prior blend weight in [0, 1].
// Decays toward zero as the user's own interaction count grows:
// b = h / (h + interactions) with h = ColdStartHalfCount.
func (r *Reranker) coldStartBlend(profile *UserTasteProfile) float64 {
	h := float64(r.config.ColdStartHalfCount)
	return h / (h + float64(profile.InteractionCount))
}

// score computes the composite relevance score for one candidate.
func (r *Reranker) score(ctx context.Context, c *Candidate, profile *UserTasteProfile, taste TasteVector, sctx SessionContext, weights ScoringWeights, blend float64) float64 {
	item := &c.Item

	// Hard time-of-day gate for meal-defining categories.
	if r.breakfastGated(item, sctx) {
		return 0
	}

	tasteTerm := tasteCosine(taste, item.Taste)
	// Cold users see the taste term pulled toward neutral so the prior
	// terms dominate until real evidence accumulates.
	tasteTerm = (1-blend)*tasteTerm + blend*0.5

	cuisineTerm := r.cuisineAffinity(profile, item, blend)
	popTerm := clamp01(item.Popularity)
	exploreTerm := r.explorationBonus(item, profile)

	score := weights.Taste*tasteTerm +
		weights.Cuisine*cuisineTerm +
		weights.Popularity*popTerm +
		weights.Exploration*exploreTerm

	score *= r.contextModifier(item, sctx)
	score *= r.confidenceDiscount(ctx, item)

	return score
}

// breakfastGated reports whether the item is breakfast-category outside
// the breakfast window. Mismatched meal-defining categories are filtered
// hard rather than merely penalized.
func (r *Reranker) breakfastGated(item *MenuItem, sctx SessionContext) bool {
	if item.Category != CategoryBreakfast {
		return false
	}
	h := sctx.TimeOfDay
	return h < r.config.BreakfastWindowStart || h > r.config.BreakfastWindowEnd
}

// cuisineAffinity blends the learned per-cuisine affinity with the
// population prior, additively weighted by the cold-start blend. An item
// with multiple cuisines takes the best affinity.
func (r *Reranker) cuisineAffinity(profile *UserTasteProfile, item *MenuItem, blend float64) float64 {
	best := 0.0
	for _, cuisine := range item.Cuisines {
		learned := profile.CuisineAffinity[cuisine]
		prior := r.config.PopulationPriors[cuisine]
		a := (1-blend)*learned + blend*prior
		if a > best {
			best = a
		}
	}
	return clamp01(best)
}

// explorationBonus is proportional to the user's posterior uncertainty
// on the axes the item is strong in, incentivizing trial of
// under-explored taste regions.
func (r *Reranker) explorationBonus(item *MenuItem, profile *UserTasteProfile) float64 {
	const strongAxis = 0.6

	var sum float64
	var n int
	for i := 0; i < TasteDimensions; i++ {
		if item.Taste[i] < strongAxis {
			continue
		}
		sum += profile.Axes[i].Variance() / (1.0 / 12.0)
		n++
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n))
}

// contextModifier returns the multiplicative adjustment from mood and
// occasion. Modifiers shift emphasis; they never zero an item (the
// breakfast gate handles hard filtering).
func (r *Reranker) contextModifier(item *MenuItem, sctx SessionContext) float64 {
	m := 1.0

	switch sctx.Mood {
	case "comfort":
		if item.Texture == "creamy" || item.Texture == "rich" {
			m *= 1.15
		}
	case "adventurous":
		if item.Popularity < 0.3 {
			m *= 1.15
		}
	case "light":
		if item.Category == CategorySide || item.Category == CategoryAppetizer {
			m *= 1.1
		}
	}

	switch sctx.Occasion {
	case "celebration":
		if item.Category == CategoryDessert || item.Category == CategoryBeverage {
			m *= 1.1
		}
	case "business":
		if item.Popularity >= 0.5 {
			m *= 1.05
		}
	}

	return m
}

// confidenceDiscount multiplies the score by a factor monotonically
// increasing with the item's attribute confidence, floored above zero so
// plausible inferred items are never fully suppressed.
func (r *Reranker) confidenceDiscount(ctx context.Context, item *MenuItem) float64 {
	if !item.Inferred {
		return 1
	}

	conf := item.Confidence
	if r.confidence != nil {
		v, err := r.confidence.Confidence(ctx, item)
		if err != nil {
			r.logger.Debug().Err(err).Str("item_id", item.ID).Msg("confidence source failed, using stored confidence")
		} else {
			conf = v
		}
	}

	floor := r.config.ConfidenceFloor
	return floor + (1-floor)*clamp01(conf)
}

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
