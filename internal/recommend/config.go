// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation pipeline.
type Config struct {
	// Retrieval contains candidate retrieval parameters.
	Retrieval RetrievalConfig `json:"retrieval"`

	// Scoring contains composite reranking parameters.
	Scoring ScoringConfig `json:"scoring"`

	// Diversity contains MMR selection parameters.
	Diversity DiversityConfig `json:"diversity"`

	// Composer contains meal composition parameters.
	Composer ComposerConfig `json:"composer"`

	// Learner contains Bayesian update parameters.
	Learner LearnerConfig `json:"learner"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Rebuild contains index rebuild scheduling parameters.
	Rebuild RebuildConfig `json:"rebuild"`
}

// RetrievalConfig contains candidate retrieval parameters.
type RetrievalConfig struct {
	// PoolMultiplier over-fetches candidates before downstream filtering.
	// Pool size = requested count * PoolMultiplier.
	// Default: 3.
	PoolMultiplier int `json:"pool_multiplier"`

	// MinPoolSize is the floor on the retrieval pool regardless of the
	// requested count.
	// Default: 30.
	MinPoolSize int `json:"min_pool_size"`
}

// ScoringConfig contains composite reranking parameters.
type ScoringConfig struct {
	// DefaultWeights is the global weight vector used before a user has
	// learned weights.
	DefaultWeights ScoringWeights `json:"default_weights"`

	// ConfidenceFloor is the minimum confidence discount multiplier.
	// Keeps plausible inferred items from being fully zeroed.
	// Default: 0.5.
	ConfidenceFloor float64 `json:"confidence_floor"`

	// ColdStartHalfCount is the interaction count at which the
	// population-prior blend weight drops to one half.
	// Default: 10.
	ColdStartHalfCount int `json:"cold_start_half_count"`

	// BreakfastWindowStart and BreakfastWindowEnd bound the hours during
	// which breakfast-category items are eligible. Outside the window
	// they receive a hard zero multiplier.
	// Defaults: 5 and 11.
	BreakfastWindowStart int `json:"breakfast_window_start"`
	BreakfastWindowEnd   int `json:"breakfast_window_end"`

	// PopulationPriors is the population-level cuisine affinity table
	// blended in for cold users.
	PopulationPriors map[string]float64 `json:"population_priors,omitempty"`
}

// DiversityConfig contains MMR selection parameters.
type DiversityConfig struct {
	// Alpha balances relevance vs. diversity (1.0 = pure relevance).
	// Default: 0.7.
	Alpha float64 `json:"alpha"`

	// MaxPerCuisine caps items per cuisine in the final list.
	// Default: 2.
	MaxPerCuisine int `json:"max_per_cuisine"`

	// PriceBandRatio bounds item prices relative to the per-item budget
	// share. Zero disables the price bound.
	// Default: 1.5.
	PriceBandRatio float64 `json:"price_band_ratio"`
}

// ComposerConfig contains meal composition parameters.
type ComposerConfig struct {
	// MinHarmony is the pairwise harmony threshold a composition must
	// clear before relaxation kicks in.
	// Default: 0.35.
	MinHarmony float64 `json:"min_harmony"`

	// HarmonyRelaxStep is subtracted from MinHarmony per relaxation
	// round.
	// Default: 0.1.
	HarmonyRelaxStep float64 `json:"harmony_relax_step"`

	// BudgetRelaxRatio multiplies the budget when harmony relaxation
	// alone cannot produce a composition.
	// Default: 1.2.
	BudgetRelaxRatio float64 `json:"budget_relax_ratio"`

	// MaxCandidatesPerCourse bounds the per-course search width.
	// Default: 8.
	MaxCandidatesPerCourse int `json:"max_candidates_per_course"`
}

// LearnerConfig contains Bayesian update parameters.
type LearnerConfig struct {
	// DecayHalfLife is the half-life for pseudo-count decay toward the
	// neutral prior.
	// Default: 21 days.
	DecayHalfLife time.Duration `json:"decay_half_life"`

	// AxisThreshold is the minimum item axis value for that axis to be
	// considered "strong" and receive pseudo-count increments.
	// Default: 0.6.
	AxisThreshold float64 `json:"axis_threshold"`

	// QuickRate, StandardRate, RatingRate are the three learning-rate
	// tiers: quick-like/skip < like/dislike < explicit rating.
	// Defaults: 0.25, 0.5, 1.0.
	QuickRate    float64 `json:"quick_rate"`
	StandardRate float64 `json:"standard_rate"`
	RatingRate   float64 `json:"rating_rate"`

	// WeightStep is the online gradient step size for the scoring-weight
	// vector.
	// Default: 0.05.
	WeightStep float64 `json:"weight_step"`

	// AffinityStep is the per-event cuisine affinity step size.
	// Default: 0.1.
	AffinityStep float64 `json:"affinity_step"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultCount is the default number of items per next() call.
	// Default: 5.
	DefaultCount int `json:"default_count"`

	// MaxCount is the maximum allowed count per next() call.
	// Default: 25.
	MaxCount int `json:"max_count"`

	// MaxCommitRetries bounds optimistic-version retry loops before
	// ErrConcurrentModification surfaces.
	// Default: 5.
	MaxCommitRetries int `json:"max_commit_retries"`

	// QueryTimeout is the per-request budget for index queries.
	// Default: 2s.
	QueryTimeout time.Duration `json:"query_timeout"`
}

// RebuildConfig contains index rebuild scheduling parameters.
type RebuildConfig struct {
	// Interval is the time between scheduled rebuilds.
	// Default: 6h.
	Interval time.Duration `json:"interval"`

	// Timeout bounds a single rebuild run.
	// Default: 10m.
	Timeout time.Duration `json:"timeout"`

	// OnStartup triggers a rebuild when the service starts.
	// Default: true.
	OnStartup bool `json:"on_startup"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			PoolMultiplier: 3,
			MinPoolSize:    30,
		},
		Scoring: ScoringConfig{
			DefaultWeights:       DefaultScoringWeights(),
			ConfidenceFloor:      0.5,
			ColdStartHalfCount:   10,
			BreakfastWindowStart: 5,
			BreakfastWindowEnd:   11,
		},
		Diversity: DiversityConfig{
			Alpha:          0.7,
			MaxPerCuisine:  2,
			PriceBandRatio: 1.5,
		},
		Composer: ComposerConfig{
			MinHarmony:             0.35,
			HarmonyRelaxStep:       0.1,
			BudgetRelaxRatio:       1.2,
			MaxCandidatesPerCourse: 8,
		},
		Learner: LearnerConfig{
			DecayHalfLife: 21 * 24 * time.Hour,
			AxisThreshold: 0.6,
			QuickRate:     0.25,
			StandardRate:  0.5,
			RatingRate:    1.0,
			WeightStep:    0.05,
			AffinityStep:  0.1,
		},
		Limits: LimitsConfig{
			DefaultCount:     5,
			MaxCount:         25,
			MaxCommitRetries: 5,
			QueryTimeout:     2 * time.Second,
		},
		Rebuild: RebuildConfig{
			Interval:  6 * time.Hour,
			Timeout:   10 * time.Minute,
			OnStartup: true,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Retrieval.PoolMultiplier < 1 {
		return fmt.Errorf("retrieval.pool_multiplier must be positive, got %d", c.Retrieval.PoolMultiplier)
	}
	if c.Retrieval.MinPoolSize < 1 {
		return fmt.Errorf("retrieval.min_pool_size must be positive, got %d", c.Retrieval.MinPoolSize)
	}

	if c.Scoring.ConfidenceFloor <= 0 || c.Scoring.ConfidenceFloor > 1 {
		return fmt.Errorf("scoring.confidence_floor must be in (0, 1], got %f", c.Scoring.ConfidenceFloor)
	}
	if c.Scoring.ColdStartHalfCount < 1 {
		return fmt.Errorf("scoring.cold_start_half_count must be positive, got %d", c.Scoring.ColdStartHalfCount)
	}
	if c.Scoring.BreakfastWindowStart < 0 || c.Scoring.BreakfastWindowStart > 23 {
		return fmt.Errorf("scoring.breakfast_window_start must be in [0, 23], got %d", c.Scoring.BreakfastWindowStart)
	}
	if c.Scoring.BreakfastWindowEnd < 0 || c.Scoring.BreakfastWindowEnd > 23 {
		return fmt.Errorf("scoring.breakfast_window_end must be in [0, 23], got %d", c.Scoring.BreakfastWindowEnd)
	}

	if c.Diversity.Alpha < 0 || c.Diversity.Alpha > 1 {
		return fmt.Errorf("diversity.alpha must be in [0, 1], got %f", c.Diversity.Alpha)
	}
	if c.Diversity.MaxPerCuisine < 1 {
		return fmt.Errorf("diversity.max_per_cuisine must be positive, got %d", c.Diversity.MaxPerCuisine)
	}
	if c.Diversity.PriceBandRatio < 0 {
		return fmt.Errorf("diversity.price_band_ratio must be non-negative, got %f", c.Diversity.PriceBandRatio)
	}

	if c.Composer.MinHarmony < 0 || c.Composer.MinHarmony > 1 {
		return fmt.Errorf("composer.min_harmony must be in [0, 1], got %f", c.Composer.MinHarmony)
	}
	if c.Composer.HarmonyRelaxStep <= 0 {
		return fmt.Errorf("composer.harmony_relax_step must be positive, got %f", c.Composer.HarmonyRelaxStep)
	}
	if c.Composer.BudgetRelaxRatio < 1 {
		return fmt.Errorf("composer.budget_relax_ratio must be >= 1, got %f", c.Composer.BudgetRelaxRatio)
	}
	if c.Composer.MaxCandidatesPerCourse < 1 {
		return fmt.Errorf("composer.max_candidates_per_course must be positive, got %d", c.Composer.MaxCandidatesPerCourse)
	}

	if c.Learner.DecayHalfLife <= 0 {
		return fmt.Errorf("learner.decay_half_life must be positive, got %v", c.Learner.DecayHalfLife)
	}
	if c.Learner.AxisThreshold < 0 || c.Learner.AxisThreshold > 1 {
		return fmt.Errorf("learner.axis_threshold must be in [0, 1], got %f", c.Learner.AxisThreshold)
	}
	if c.Learner.QuickRate <= 0 || c.Learner.StandardRate <= 0 || c.Learner.RatingRate <= 0 {
		return fmt.Errorf("learner rates must be positive")
	}
	if c.Learner.QuickRate > c.Learner.StandardRate || c.Learner.StandardRate > c.Learner.RatingRate {
		return fmt.Errorf("learner rates must be ordered quick <= standard <= rating")
	}
	if c.Learner.WeightStep <= 0 || c.Learner.WeightStep >= 1 {
		return fmt.Errorf("learner.weight_step must be in (0, 1), got %f", c.Learner.WeightStep)
	}

	if c.Limits.DefaultCount < 1 {
		return fmt.Errorf("limits.default_count must be positive, got %d", c.Limits.DefaultCount)
	}
	if c.Limits.MaxCount < c.Limits.DefaultCount {
		return fmt.Errorf("limits.max_count must be >= limits.default_count, got %d < %d", c.Limits.MaxCount, c.Limits.DefaultCount)
	}
	if c.Limits.MaxCommitRetries < 1 {
		return fmt.Errorf("limits.max_commit_retries must be positive, got %d", c.Limits.MaxCommitRetries)
	}
	if c.Limits.QueryTimeout <= 0 {
		return fmt.Errorf("limits.query_timeout must be positive, got %v", c.Limits.QueryTimeout)
	}

	if c.Rebuild.Interval <= 0 {
		return fmt.Errorf("rebuild.interval must be positive, got %v", c.Rebuild.Interval)
	}
	if c.Rebuild.Timeout <= 0 {
		return fmt.Errorf("rebuild.timeout must be positive, got %v", c.Rebuild.Timeout)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := &Config{
		Retrieval: c.Retrieval,
		Scoring:   c.Scoring,
		Diversity: c.Diversity,
		Composer:  c.Composer,
		Learner:   c.Learner,
		Limits:    c.Limits,
		Rebuild:   c.Rebuild,
	}
	if c.Scoring.PopulationPriors != nil {
		out.Scoring.PopulationPriors = make(map[string]float64, len(c.Scoring.PopulationPriors))
		for k, v := range c.Scoring.PopulationPriors {
			out.Scoring.PopulationPriors[k] = v
		}
	}
	return out
}
