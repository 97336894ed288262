// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// neutralPrior is the Beta pseudo-count both parameters decay toward.
// Decay pulls evidence back to Beta(1, 1), never below it, so counts
// shrink but never invert sign.
const neutralPrior = 1.0

// Learner applies Bayesian posterior updates and online weight learning
// to user taste profiles. Update returns a new profile value; committing
// it under the store's optimistic version check is the caller's job.
type Learner struct {
	config LearnerConfig
	logger zerolog.Logger

	// rng backs Thompson sampling. Samples are drawn fresh per request
	// and never cached, so concurrent sessions for the same user don't
	// correlate artificially.
	rng   *rand.Rand
	rngMu sync.Mutex

	// now is injectable for tests.
	now func() time.Time
}

// NewLearner creates a profile learner.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLearner(cfg LearnerConfig, seed int64, logger zerolog.Logger) *Learner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Learner{
		config: cfg,
		logger: logger.With().Str("component", "learner").Logger(),
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for Thompson sampling
		now:    time.Now,
	}
}

// Update applies one feedback event and returns the new profile state.
// Decay runs uniformly before the increment, so the net long-run trend
// tracks recent feedback while pseudo-counts never drop below the
// neutral prior.
func (l *Learner) Update(profile *UserTasteProfile, item *MenuItem, event FeedbackEvent) *UserTasteProfile {
	next := cloneProfile(profile)

	ts := event.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	l.decay(next, ts)

	rate, positive := l.learningRate(event)
	l.incrementAxes(next, item, rate, positive)
	l.updateAffinity(next, item, rate, positive)
	l.updateWeights(next, item, positive)

	next.InteractionCount++
	next.LastUpdated = ts

	return next
}

// Reset returns the profile to the neutral prior, preserving identity
// and the declared safety constraints.
func (l *Learner) Reset(profile *UserTasteProfile) *UserTasteProfile {
	next := NewUserTasteProfile(profile.UserID)
	next.Allergies = append([]string(nil), profile.Allergies...)
	next.DietaryRules = append([]string(nil), profile.DietaryRules...)
	next.Version = profile.Version
	return next
}

// decay shrinks pseudo-counts toward the neutral prior with the
// configured half-life. Zero (or negative) elapsed time is a no-op, so
// same-instant feedback bursts decay once, on the first event.
func (l *Learner) decay(profile *UserTasteProfile, now time.Time) {
	if profile.LastUpdated.IsZero() {
		return
	}
	elapsed := now.Sub(profile.LastUpdated)
	if elapsed <= 0 {
		return
	}

	factor := math.Pow(0.5, elapsed.Hours()/l.config.DecayHalfLife.Hours())
	for i := range profile.Axes {
		profile.Axes[i].Alpha = neutralPrior + (profile.Axes[i].Alpha-neutralPrior)*factor
		profile.Axes[i].Beta = neutralPrior + (profile.Axes[i].Beta-neutralPrior)*factor
	}
}

// learningRate maps the feedback type to one of the three tiers and the
// update direction.
func (l *Learner) learningRate(event FeedbackEvent) (rate float64, positive bool) {
	switch event.Type {
	case FeedbackSkip:
		return l.config.QuickRate, event.Type.Positive()
	case FeedbackLike, FeedbackDislike, FeedbackSelect:
		return l.config.StandardRate, event.Type.Positive()
	case FeedbackRating:
		// Ratings 1-5: distance from the midpoint scales strength,
		// side of the midpoint sets direction. A flat 3 teaches weakly.
		delta := float64(event.Rating) - 3
		if delta == 0 {
			return l.config.QuickRate, true
		}
		return l.config.RatingRate * math.Abs(delta) / 2, delta > 0
	default:
		return l.config.QuickRate, true
	}
}

// incrementAxes adds evidence on the axes the item is strong in.
// Positive events increment alpha, negative increment beta, both scaled
// by the axis strength.
func (l *Learner) incrementAxes(profile *UserTasteProfile, item *MenuItem, rate float64, positive bool) {
	for i := 0; i < TasteDimensions; i++ {
		strength := item.Taste[i]
		if strength < l.config.AxisThreshold {
			continue
		}
		if positive {
			profile.Axes[i].Alpha += rate * strength
		} else {
			profile.Axes[i].Beta += rate * strength
		}
	}
}

// updateAffinity nudges per-cuisine affinity toward 1 on positive events
// and toward 0 on negative ones.
func (l *Learner) updateAffinity(profile *UserTasteProfile, item *MenuItem, rate float64, positive bool) {
	step := l.config.AffinityStep * rate / l.config.StandardRate
	for _, cuisine := range item.Cuisines {
		a := profile.CuisineAffinity[cuisine]
		if positive {
			a += step * (1 - a)
		} else {
			a -= step * a
		}
		profile.CuisineAffinity[cuisine] = clamp01(a)
	}
}

// updateWeights takes a bounded gradient step on the scoring-weight
// vector: terms that describe the item well move in the feedback
// direction relative to the mean term, then the vector is clipped to
// non-negative and renormalized to the fixed sum. A like on a
// high-affinity, low-taste-match item therefore nudges w_cuisine up and
// w_taste down slightly.
func (l *Learner) updateWeights(profile *UserTasteProfile, item *MenuItem, positive bool) {
	terms := [4]float64{
		clamp01(tasteCosine(profile.PosteriorMeans(), item.Taste)),
		l.bestAffinity(profile, item),
		clamp01(item.Popularity),
		profile.Uncertainty(),
	}

	mean := (terms[0] + terms[1] + terms[2] + terms[3]) / 4
	dir := 1.0
	if !positive {
		dir = -1
	}

	step := l.config.WeightStep
	w := [4]float64{
		profile.Weights.Taste + dir*step*(terms[0]-mean),
		profile.Weights.Cuisine + dir*step*(terms[1]-mean),
		profile.Weights.Popularity + dir*step*(terms[2]-mean),
		profile.Weights.Exploration + dir*step*(terms[3]-mean),
	}
	for i := range w {
		if w[i] < 0 {
			w[i] = 0
		}
	}

	profile.Weights = ScoringWeights{
		Taste:       w[0],
		Cuisine:     w[1],
		Popularity:  w[2],
		Exploration: w[3],
	}.Normalize()
}

// bestAffinity returns the highest learned affinity across the item's
// cuisines.
func (l *Learner) bestAffinity(profile *UserTasteProfile, item *MenuItem) float64 {
	best := 0.0
	for _, cuisine := range item.Cuisines {
		if a := profile.CuisineAffinity[cuisine]; a > best {
			best = a
		}
	}
	return best
}

// SampleTaste draws one Thompson sample per axis from the current Beta
// posteriors. Called once per retrieval request; results are never
// cached across concurrent requests.
func (l *Learner) SampleTaste(profile *UserTasteProfile) TasteVector {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()

	var v TasteVector
	for i := range profile.Axes {
		v[i] = sampleBeta(l.rng, profile.Axes[i].Alpha, profile.Axes[i].Beta)
	}
	return v
}

// sampleBeta draws from Beta(a, b) via two Gamma draws.
func sampleBeta(rng *rand.Rand, a, b float64) float64 {
	x := sampleGamma(rng, a)
	y := sampleGamma(rng, b)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma draws from Gamma(shape, 1) using the Marsaglia-Tsang
// squeeze method, with the standard boost for shape < 1.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape <= 0 {
		return 0
	}
	if shape < 1 {
		// Gamma(a) = Gamma(a+1) * U^(1/a)
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// cloneProfile deep-copies a profile.
func cloneProfile(p *UserTasteProfile) *UserTasteProfile {
	next := *p
	next.CuisineAffinity = make(map[string]float64, len(p.CuisineAffinity))
	for k, v := range p.CuisineAffinity {
		next.CuisineAffinity[k] = v
	}
	next.Allergies = append([]string(nil), p.Allergies...)
	next.DietaryRules = append([]string(nil), p.DietaryRules...)
	return &next
}
