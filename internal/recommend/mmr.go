// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"strings"
)

// DiversityReranker applies Maximal Marginal Relevance selection over a
// relevance-ranked candidate list:
//
//	MMR = alpha*relevance(i) - (1-alpha)*max(sim(i, s)) for s in selected
//
// alpha=1 degenerates to pure relevance ranking; alpha=0 maximizes
// diversity beyond the first pick. Per-cuisine caps and the price-range
// bound are hard constraints enforced during selection, never patched up
// afterward: a violating candidate is skipped regardless of its MMR
// score. Ties break by original relevance rank.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type DiversityReranker struct {
	config DiversityConfig
}

// NewDiversityReranker creates an MMR selector, clamping alpha to [0, 1].
func NewDiversityReranker(cfg DiversityConfig) *DiversityReranker {
	if cfg.Alpha < 0 {
		cfg.Alpha = 0
	}
	if cfg.Alpha > 1 {
		cfg.Alpha = 1
	}
	return &DiversityReranker{config: cfg}
}

// Select picks up to n candidates from the relevance-ordered input.
// maxPrice bounds individual item prices; zero disables the bound.
func (d *DiversityReranker) Select(candidates []Candidate, n int, maxPrice float64) []Candidate {
	if len(candidates) == 0 || n <= 0 {
		return []Candidate{}
	}
	if n > len(candidates) {
		n = len(candidates)
	}

	alpha := d.config.Alpha
	selected := make([]Candidate, 0, n)
	selectedIdx := make(map[int]struct{}, n)
	cuisineCount := make(map[string]int)

	for len(selected) < n {
		bestIdx := -1
		bestScore := 0.0

		for i := range candidates {
			if _, done := selectedIdx[i]; done {
				continue
			}
			if !d.admissible(&candidates[i], cuisineCount, maxPrice) {
				continue
			}

			maxSim := 0.0
			for j := range selectedIdx {
				if sim := itemSimilarity(&candidates[i].Item, &candidates[j].Item); sim > maxSim {
					maxSim = sim
				}
			}

			score := alpha*candidates[i].RerankScore - (1-alpha)*maxSim

			// Strict inequality keeps the earliest (highest original
			// relevance) candidate on ties.
			if bestIdx < 0 || score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break // every remaining candidate violates a constraint
		}

		candidates[bestIdx].DiversityScore = bestScore
		selected = append(selected, candidates[bestIdx])
		selectedIdx[bestIdx] = struct{}{}
		for _, cuisine := range candidates[bestIdx].Item.Cuisines {
			cuisineCount[strings.ToLower(cuisine)]++
		}
	}

	return selected
}

// admissible checks the hard selection constraints.
func (d *DiversityReranker) admissible(c *Candidate, cuisineCount map[string]int, maxPrice float64) bool {
	if maxPrice > 0 && c.Item.Price > maxPrice {
		return false
	}
	for _, cuisine := range c.Item.Cuisines {
		if cuisineCount[strings.ToLower(cuisine)] >= d.config.MaxPerCuisine {
			return false
		}
	}
	return true
}

// MaxItemPrice derives the per-item price bound from the session budget:
// budget spread over the requested count, widened by PriceBandRatio.
// Returns 0 (no bound) when the budget is unconstrained.
func (d *DiversityReranker) MaxItemPrice(budget float64, count int) float64 {
	if budget <= 0 || count <= 0 || d.config.PriceBandRatio <= 0 {
		return 0
	}
	return (budget / float64(count)) * d.config.PriceBandRatio
}

// itemSimilarity combines cuisine Jaccard overlap with taste cosine,
// equally weighted. Two items are redundant when they share both cuisine
// identity and taste shape.
func itemSimilarity(a, b *MenuItem) float64 {
	return 0.5*cuisineJaccard(a.Cuisines, b.Cuisines) + 0.5*clamp01(tasteCosine(a.Taste, b.Taste))
}

// cuisineJaccard computes Jaccard similarity between cuisine tag lists,
// case-insensitively.
func cuisineJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, c := range a {
		setA[strings.ToLower(c)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, c := range b {
		setB[strings.ToLower(c)] = struct{}{}
	}

	intersection := 0
	for c := range setA {
		if _, ok := setB[c]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
