// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Composer assembles multi-course meal compositions under budget and
// harmony constraints. When no combination satisfies both, it relaxes
// the harmony threshold first, then the budget, and returns a
// best-effort composition with explicit relaxation flags rather than
// failing.
type Composer struct {
	config ComposerConfig
	logger zerolog.Logger
}

// NewComposer creates a meal composer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewComposer(cfg ComposerConfig, logger zerolog.Logger) *Composer {
	return &Composer{
		config: cfg,
		logger: logger.With().Str("component", "composer").Logger(),
	}
}

// CoursesForIntent returns the course slots an intent composes, in
// serving order. Non-composing intents return nil.
func CoursesForIntent(intent MealIntent) []Course {
	if intent == IntentFullMeal {
		return []Course{CourseAppetizer, CourseMain, CourseDessert}
	}
	return nil
}

// courseChoice is one scored option for a course slot.
type courseChoice struct {
	item   MenuItem
	score  float64
	pinned bool
}

// Compose builds a composition from per-course candidate pools. Pinned
// slots (from accepted-course feedback) are carried through unchanged.
// Every produced composition gets a distinct id.
func (c *Composer) Compose(pools map[Course][]Candidate, courses []Course, budget float64, pinned map[Course]CompositionSlot) (*Composition, error) {
	if len(courses) == 0 {
		return nil, ErrNoCourseSlots
	}

	choices, err := c.buildChoices(pools, courses, pinned)
	if err != nil {
		return nil, err
	}

	// Relaxation ladder: full constraints, then harmony steps toward
	// zero, then a widened budget with no harmony floor.
	minHarmony := c.config.MinHarmony
	harmonyRelaxed := false
	budgetRelaxed := false
	effectiveBudget := budget

	for {
		if best := c.search(choices, courses, effectiveBudget, minHarmony); best != nil {
			best.HarmonyRelaxed = harmonyRelaxed
			best.BudgetRelaxed = budgetRelaxed
			return best, nil
		}

		if minHarmony > 0 {
			minHarmony -= c.config.HarmonyRelaxStep
			if minHarmony < 0 {
				minHarmony = 0
			}
			harmonyRelaxed = true
			continue
		}

		if !budgetRelaxed && budget > 0 {
			effectiveBudget = budget * c.config.BudgetRelaxRatio
			budgetRelaxed = true
			continue
		}

		// Final best effort: ignore the budget entirely.
		if effectiveBudget > 0 {
			effectiveBudget = 0
			budgetRelaxed = true
			continue
		}

		break
	}

	return nil, ErrItemNotFound
}

// buildChoices assembles the bounded per-course option lists. A pinned
// course contributes exactly its pinned item.
func (c *Composer) buildChoices(pools map[Course][]Candidate, courses []Course, pinned map[Course]CompositionSlot) (map[Course][]courseChoice, error) {
	choices := make(map[Course][]courseChoice, len(courses))

	for _, course := range courses {
		if slot, ok := pinned[course]; ok {
			item := findPoolItem(pools[course], slot.ItemID)
			if item == nil {
				// Pinned item may have left the pool (exclusions apply
				// only to unpinned slots); synthesize from the slot.
				item = &MenuItem{ID: slot.ItemID, Price: slot.Price}
			}
			choices[course] = []courseChoice{{item: *item, pinned: true}}
			continue
		}

		pool := pools[course]
		if len(pool) == 0 {
			return nil, ErrItemNotFound
		}

		sorted := append([]Candidate(nil), pool...)
		sort.Slice(sorted, func(a, b int) bool {
			if sorted[a].RerankScore != sorted[b].RerankScore {
				return sorted[a].RerankScore > sorted[b].RerankScore
			}
			return sorted[a].Item.ID < sorted[b].Item.ID
		})
		if len(sorted) > c.config.MaxCandidatesPerCourse {
			sorted = sorted[:c.config.MaxCandidatesPerCourse]
		}

		opts := make([]courseChoice, len(sorted))
		for i := range sorted {
			opts[i] = courseChoice{item: sorted[i].Item, score: sorted[i].RerankScore}
		}
		choices[course] = opts
	}

	return choices, nil
}

// search exhaustively walks the bounded option space for the combination
// maximizing total relevance subject to the budget and minimum pairwise
// harmony. Returns nil when no combination qualifies.
func (c *Composer) search(choices map[Course][]courseChoice, courses []Course, budget, minHarmony float64) *Composition {
	var best []courseChoice
	bestScore := -1.0

	current := make([]courseChoice, 0, len(courses))

	var walk func(depth int, priceSoFar float64)
	walk = func(depth int, priceSoFar float64) {
		if depth == len(courses) {
			score := 0.0
			for i := range current {
				score += current[i].score
			}
			if score > bestScore {
				bestScore = score
				best = append([]courseChoice(nil), current...)
			}
			return
		}

		for _, opt := range choices[courses[depth]] {
			price := priceSoFar + opt.item.Price
			if budget > 0 && price > budget {
				continue
			}

			ok := true
			for i := range current {
				if harmonyScore(&current[i].item, &opt.item) < minHarmony {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}

			current = append(current, opt)
			walk(depth+1, price)
			current = current[:len(current)-1]
		}
	}
	walk(0, 0)

	if best == nil {
		return nil
	}

	comp := &Composition{
		ID:      uuid.NewString(),
		Slots:   make([]CompositionSlot, len(courses)),
		Harmony: 1,
	}
	for i, course := range courses {
		comp.Slots[i] = CompositionSlot{
			Course:   course,
			ItemID:   best[i].item.ID,
			Price:    best[i].item.Price,
			Feedback: CoursePending,
		}
		if best[i].pinned {
			comp.Slots[i].Feedback = CourseAccepted
		}
		comp.TotalPrice += best[i].item.Price
	}
	for i := range best {
		for j := i + 1; j < len(best); j++ {
			if h := harmonyScore(&best[i].item, &best[j].item); h < comp.Harmony {
				comp.Harmony = h
			}
		}
	}

	return comp
}

// harmonyScore measures course-pair compatibility from taste contrast,
// texture variety, and cuisine coherence. Pinned items synthesized
// without metadata score neutrally rather than blocking the search.
func harmonyScore(a, b *MenuItem) float64 {
	if isBareItem(a) || isBareItem(b) {
		return 0.5
	}

	// Courses should differ in taste: reward moderate contrast.
	contrast := 1 - clamp01(tasteCosine(a.Taste, b.Taste))

	variety := 0.3
	if a.Texture != "" && b.Texture != "" && a.Texture != b.Texture {
		variety = 1.0
	}

	coherence := 0.4
	if cuisineJaccard(a.Cuisines, b.Cuisines) > 0 {
		coherence = 1.0
	}

	return 0.4*contrast + 0.3*variety + 0.3*coherence
}

// isBareItem reports whether the item carries no scoring metadata
// (synthesized from a pinned slot after pool exclusion).
func isBareItem(m *MenuItem) bool {
	return len(m.Cuisines) == 0 && m.Texture == "" && m.Taste == TasteVector{}
}

// findPoolItem returns the pool item with the given id, or nil.
func findPoolItem(pool []Candidate, id string) *MenuItem {
	for i := range pool {
		if pool[i].Item.ID == id {
			return &pool[i].Item
		}
	}
	return nil
}
