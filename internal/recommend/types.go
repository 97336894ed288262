// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"time"
)

// TasteDimensions is the number of semantic taste axes on every item and
// profile vector (sweet, salty, sour, bitter, umami, spicy, rich, fresh,
// crunchy, creamy). All taste vectors share this fixed dimension.
const TasteDimensions = 10

// TasteVector holds per-axis values in [0, 1].
type TasteVector [TasteDimensions]float64

// MealIntent specifies what kind of meal the user is assembling.
type MealIntent int

const (
	// IntentFullMeal requests a multi-course composition.
	IntentFullMeal MealIntent = iota
	// IntentMainOnly requests main courses only.
	IntentMainOnly
	// IntentAppetizerOnly requests appetizers only.
	IntentAppetizerOnly
	// IntentDessertOnly requests desserts only.
	IntentDessertOnly
	// IntentBeverageOnly requests beverages only.
	IntentBeverageOnly
	// IntentLightSnack requests light single items.
	IntentLightSnack
)

// String returns a human-readable intent name.
func (m MealIntent) String() string {
	switch m {
	case IntentFullMeal:
		return "full_meal"
	case IntentMainOnly:
		return "main_only"
	case IntentAppetizerOnly:
		return "appetizer_only"
	case IntentDessertOnly:
		return "dessert_only"
	case IntentBeverageOnly:
		return "beverage_only"
	case IntentLightSnack:
		return "light_snack"
	default:
		return "unknown"
	}
}

// ParseMealIntent converts a wire-format intent string to a MealIntent.
func ParseMealIntent(s string) (MealIntent, bool) {
	switch s {
	case "full_meal":
		return IntentFullMeal, true
	case "main_only":
		return IntentMainOnly, true
	case "appetizer_only":
		return IntentAppetizerOnly, true
	case "dessert_only":
		return IntentDessertOnly, true
	case "beverage_only":
		return IntentBeverageOnly, true
	case "light_snack":
		return IntentLightSnack, true
	default:
		return IntentFullMeal, false
	}
}

// Course identifies a slot within a meal composition.
type Course string

const (
	// CourseAppetizer is the opening course.
	CourseAppetizer Course = "appetizer"
	// CourseMain is the main course.
	CourseMain Course = "main"
	// CourseDessert is the closing course.
	CourseDessert Course = "dessert"
	// CourseBeverage is the drink slot.
	CourseBeverage Course = "beverage"
)

// Category classifies a menu item for course assignment and time-of-day
// gating. Meal-defining categories (breakfast) are hard-filtered outside
// their time window.
type Category string

const (
	// CategoryAppetizer items fill the appetizer slot.
	CategoryAppetizer Category = "appetizer"
	// CategoryMain items fill the main slot.
	CategoryMain Category = "main"
	// CategoryDessert items fill the dessert slot.
	CategoryDessert Category = "dessert"
	// CategoryBeverage items fill the beverage slot.
	CategoryBeverage Category = "beverage"
	// CategorySide items accompany mains; eligible as light snacks.
	CategorySide Category = "side"
	// CategoryBreakfast items are meal-defining and morning-gated.
	CategoryBreakfast Category = "breakfast"
)

// CourseForCategory maps a category to the composition slot it can fill.
// Returns false for categories that never fill a course slot directly.
func CourseForCategory(c Category) (Course, bool) {
	switch c {
	case CategoryAppetizer:
		return CourseAppetizer, true
	case CategoryMain, CategoryBreakfast:
		return CourseMain, true
	case CategoryDessert:
		return CourseDessert, true
	case CategoryBeverage:
		return CourseBeverage, true
	default:
		return "", false
	}
}

// MenuItem is a single orderable item. Immutable once created; re-embedding
// produces a replacement record during an index rebuild cycle.
type MenuItem struct {
	// ID is the stable item identifier.
	ID string `json:"id"`

	// RestaurantID references the owning restaurant.
	RestaurantID string `json:"restaurant_id"`

	// Name is the display name.
	Name string `json:"name"`

	// Taste holds the semantic taste axes in [0, 1].
	Taste TasteVector `json:"taste"`

	// Embedding is the lower-dimensional vector used for ANN retrieval.
	Embedding []float64 `json:"embedding"`

	// Category classifies the item for course assignment.
	Category Category `json:"category"`

	// Cuisines is the set of cuisine tags (e.g., "italian", "thai").
	Cuisines []string `json:"cuisines"`

	// DietaryTags lists satisfied dietary rules (e.g., "vegan", "halal").
	DietaryTags []string `json:"dietary_tags"`

	// Allergens lists allergens present in the item.
	Allergens []string `json:"allergens"`

	// Price is the menu price in the restaurant's currency.
	Price float64 `json:"price"`

	// Popularity is a pre-computed popularity score in [0, 1].
	Popularity float64 `json:"popularity"`

	// Texture describes the dominant texture ("crunchy", "creamy", ...).
	// Used by the harmony score for texture variety.
	Texture string `json:"texture,omitempty"`

	// Inferred indicates attributes were inferred rather than provided.
	Inferred bool `json:"inferred,omitempty"`

	// Confidence in [0, 1] qualifies inferred attributes.
	Confidence float64 `json:"confidence,omitempty"`
}

// HasAllergen reports whether the item contains any of the given allergens.
func (m *MenuItem) HasAllergen(allergies []string) bool {
	if len(allergies) == 0 || len(m.Allergens) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(m.Allergens))
	for _, a := range m.Allergens {
		set[a] = struct{}{}
	}
	for _, a := range allergies {
		if _, ok := set[a]; ok {
			return true
		}
	}
	return false
}

// SatisfiesDiet reports whether the item carries every required dietary tag.
func (m *MenuItem) SatisfiesDiet(rules []string) bool {
	if len(rules) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(m.DietaryTags))
	for _, t := range m.DietaryTags {
		set[t] = struct{}{}
	}
	for _, r := range rules {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

// BetaParams holds the Beta-distribution pseudo-counts for one taste axis.
// Alpha counts positive evidence, Beta negative. Both are >= the neutral
// prior at all times; decay pulls them toward the prior, never below it.
type BetaParams struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// Mean returns the posterior mean alpha/(alpha+beta).
func (b BetaParams) Mean() float64 {
	s := b.Alpha + b.Beta
	if s == 0 {
		return 0.5
	}
	return b.Alpha / s
}

// Variance returns the posterior variance.
func (b BetaParams) Variance() float64 {
	s := b.Alpha + b.Beta
	if s == 0 {
		return 0.25
	}
	return (b.Alpha * b.Beta) / (s * s * (s + 1))
}

// ScoringWeights is the per-user weight vector over scoring terms.
// Weights are non-negative and renormalized to sum to WeightSum after
// every learning step.
type ScoringWeights struct {
	Taste       float64 `json:"taste"`
	Cuisine     float64 `json:"cuisine"`
	Popularity  float64 `json:"popularity"`
	Exploration float64 `json:"exploration"`
}

// WeightSum is the fixed sum every ScoringWeights vector is normalized to.
const WeightSum = 1.0

// Sum returns the total of all weight components.
func (w ScoringWeights) Sum() float64 {
	return w.Taste + w.Cuisine + w.Popularity + w.Exploration
}

// Normalize returns a copy scaled so the components sum to WeightSum.
// A zero vector normalizes to the uniform vector.
func (w ScoringWeights) Normalize() ScoringWeights {
	s := w.Sum()
	if s <= 0 {
		const q = WeightSum / 4
		return ScoringWeights{Taste: q, Cuisine: q, Popularity: q, Exploration: q}
	}
	f := WeightSum / s
	return ScoringWeights{
		Taste:       w.Taste * f,
		Cuisine:     w.Cuisine * f,
		Popularity:  w.Popularity * f,
		Exploration: w.Exploration * f,
	}
}

// UserTasteProfile is the learned belief state for one user.
// Mutations go through TasteProfileLearner; concurrent writers are
// serialized by the store's optimistic version check.
type UserTasteProfile struct {
	// UserID is the profile owner.
	UserID string `json:"user_id"`

	// Axes holds per-axis Beta posteriors over liking that axis.
	Axes [TasteDimensions]BetaParams `json:"axes"`

	// CuisineAffinity maps cuisine tag to learned affinity in [0, 1].
	CuisineAffinity map[string]float64 `json:"cuisine_affinity"`

	// Weights is the learned scoring-weight vector.
	Weights ScoringWeights `json:"weights"`

	// Allergies is the user's declared allergy set (safety-critical).
	Allergies []string `json:"allergies"`

	// DietaryRules lists active dietary rules ("vegan", "halal", ...).
	DietaryRules []string `json:"dietary_rules"`

	// InteractionCount is the number of feedback events applied.
	InteractionCount int `json:"interaction_count"`

	// LastUpdated is when the profile last absorbed feedback.
	// Drives the decay-before-increment schedule.
	LastUpdated time.Time `json:"last_updated"`

	// Version is the optimistic-concurrency record version.
	Version uint64 `json:"version"`
}

// NewUserTasteProfile returns a profile at the neutral prior.
func NewUserTasteProfile(userID string) *UserTasteProfile {
	p := &UserTasteProfile{
		UserID:          userID,
		CuisineAffinity: make(map[string]float64),
		Weights:         DefaultScoringWeights(),
	}
	for i := range p.Axes {
		p.Axes[i] = BetaParams{Alpha: 1, Beta: 1}
	}
	return p
}

// DefaultScoringWeights returns the global default weight vector used
// until a user has learned weights of their own.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Taste:       0.45,
		Cuisine:     0.25,
		Popularity:  0.15,
		Exploration: 0.15,
	}
}

// Uncertainty returns the mean posterior standard deviation across axes.
// Cold profiles are maximally uncertain; heavy feedback drives this down.
func (p *UserTasteProfile) Uncertainty() float64 {
	var sum float64
	for i := range p.Axes {
		// Normalized against the uniform-prior variance 1/12 so a cold
		// profile reads close to 1.0.
		sum += p.Axes[i].Variance() / (1.0 / 12.0)
	}
	u := sum / TasteDimensions
	if u > 1 {
		u = 1
	}
	return u
}

// PosteriorMeans returns the per-axis posterior means as a taste vector.
func (p *UserTasteProfile) PosteriorMeans() TasteVector {
	var v TasteVector
	for i := range p.Axes {
		v[i] = p.Axes[i].Mean()
	}
	return v
}

// SessionStatus is the lifecycle state of a recommendation session.
type SessionStatus string

const (
	// StatusActive accepts next/feedback/composition operations.
	StatusActive SessionStatus = "active"
	// StatusCompleted is terminal; the user ordered.
	StatusCompleted SessionStatus = "completed"
	// StatusAbandoned is terminal; the user left.
	StatusAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether the status accepts no further mutation.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// SessionContext is the immutable context snapshot captured at start().
type SessionContext struct {
	// Mood is a free-form mood hint ("comfort", "adventurous", ...).
	Mood string `json:"mood,omitempty"`

	// Occasion is the dining occasion ("date", "business", ...).
	Occasion string `json:"occasion,omitempty"`

	// TimeOfDay is the hour (0-23) at session start.
	TimeOfDay int `json:"time_of_day"`

	// PartySize is the number of diners.
	PartySize int `json:"party_size,omitempty"`
}

// CourseFeedback is the per-course acceptance state within a composition.
type CourseFeedback string

const (
	// CoursePending has received no feedback yet.
	CoursePending CourseFeedback = "pending"
	// CourseAccepted pins the item across regenerations.
	CourseAccepted CourseFeedback = "accepted"
	// CourseRejected triggers regeneration of only that course.
	CourseRejected CourseFeedback = "rejected"
)

// CompositionSlot binds one item to one course with its feedback state.
type CompositionSlot struct {
	Course   Course         `json:"course"`
	ItemID   string         `json:"item_id"`
	Price    float64        `json:"price"`
	Feedback CourseFeedback `json:"feedback"`
}

// Composition is a multi-course meal proposal. Each produced composition
// carries a distinct ID so stale feedback is detectable.
type Composition struct {
	// ID is the distinct composition identifier.
	ID string `json:"id"`

	// Slots maps each course to exactly one item.
	Slots []CompositionSlot `json:"slots"`

	// TotalPrice is the sum of slot prices.
	TotalPrice float64 `json:"total_price"`

	// Harmony is the minimum pairwise harmony score across courses.
	Harmony float64 `json:"harmony"`

	// BudgetRelaxed indicates the budget constraint was relaxed.
	BudgetRelaxed bool `json:"budget_relaxed,omitempty"`

	// HarmonyRelaxed indicates the harmony threshold was relaxed.
	HarmonyRelaxed bool `json:"harmony_relaxed,omitempty"`
}

// Slot returns the slot for a course, or nil if absent.
func (c *Composition) Slot(course Course) *CompositionSlot {
	for i := range c.Slots {
		if c.Slots[i].Course == course {
			return &c.Slots[i]
		}
	}
	return nil
}

// RecommendationSession is the orchestrating state record for one
// multi-turn recommendation conversation.
type RecommendationSession struct {
	// ID is the session identifier.
	ID string `json:"id"`

	// UserID is the session owner.
	UserID string `json:"user_id"`

	// RestaurantID scopes retrieval to one restaurant's menu.
	RestaurantID string `json:"restaurant_id"`

	// Intent is the meal intent chosen at start().
	Intent MealIntent `json:"intent"`

	// Budget is the total budget; zero means unconstrained.
	Budget float64 `json:"budget"`

	// Context is the context snapshot captured at start().
	Context SessionContext `json:"context"`

	// Shown is the set of item IDs already returned by next().
	Shown map[string]struct{} `json:"shown"`

	// Excluded is the set of item IDs never to return again.
	Excluded map[string]struct{} `json:"excluded"`

	// CourseShown tracks per-course item history for regeneration. Like
	// Shown and Excluded it must survive a store round-trip even when
	// empty, so composing intents can append after a reload.
	CourseShown map[Course][]string `json:"course_shown"`

	// Iteration counts next() calls.
	Iteration int `json:"iteration"`

	// Status is the lifecycle state.
	Status SessionStatus `json:"status"`

	// Current is the live composition, if the intent composes meals.
	Current *Composition `json:"current,omitempty"`

	// SelectedItemIDs records the final selection on complete().
	SelectedItemIDs []string `json:"selected_item_ids,omitempty"`

	// CreatedAt is the session start time.
	CreatedAt time.Time `json:"created_at"`

	// Version is the optimistic-concurrency record version.
	Version uint64 `json:"version"`
}

// Candidate is an ephemeral scoring record flowing through the pipeline.
// Candidates are never persisted.
type Candidate struct {
	// Item is the underlying menu item.
	Item MenuItem `json:"item"`

	// RetrievalScore is the ANN (or fallback scan) similarity.
	RetrievalScore float64 `json:"retrieval_score"`

	// RerankScore is the composite relevance score.
	RerankScore float64 `json:"rerank_score"`

	// DiversityScore is the MMR-adjusted score at selection time.
	DiversityScore float64 `json:"diversity_score"`

	// Fallback marks candidates produced by the exact-scan path.
	Fallback bool `json:"fallback,omitempty"`
}

// FeedbackType classifies a feedback event.
type FeedbackType string

const (
	// FeedbackLike is a positive quick reaction.
	FeedbackLike FeedbackType = "like"
	// FeedbackDislike is a negative reaction; excludes the item.
	FeedbackDislike FeedbackType = "dislike"
	// FeedbackSkip is a weak negative; excludes the item.
	FeedbackSkip FeedbackType = "skip"
	// FeedbackSelect indicates the user added the item to the order.
	FeedbackSelect FeedbackType = "select"
	// FeedbackRating carries an explicit 1-5 rating.
	FeedbackRating FeedbackType = "rating"
)

// Valid reports whether the feedback type is a known value.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackLike, FeedbackDislike, FeedbackSkip, FeedbackSelect, FeedbackRating:
		return true
	default:
		return false
	}
}

// Positive reports whether the type is inherently a positive signal.
// Rating events take their direction from the rating value instead.
func (t FeedbackType) Positive() bool {
	return t == FeedbackLike || t == FeedbackSelect || t == FeedbackRating
}

// Excludes reports whether the event removes the item from the session pool.
func (t FeedbackType) Excludes() bool {
	return t == FeedbackDislike || t == FeedbackSkip
}

// FeedbackEvent is one user reaction routed to the learner.
type FeedbackEvent struct {
	// SessionID references the originating session.
	SessionID string `json:"session_id"`

	// UserID is the reacting user.
	UserID string `json:"user_id"`

	// ItemID is the target item.
	ItemID string `json:"item_id"`

	// Course is set for composition-scoped feedback.
	Course Course `json:"course,omitempty"`

	// Type classifies the reaction.
	Type FeedbackType `json:"type"`

	// Rating is the explicit 1-5 rating for FeedbackRating events.
	Rating int `json:"rating,omitempty"`

	// Timestamp is when the reaction occurred.
	Timestamp time.Time `json:"timestamp"`
}

// RetrievalResult is the candidate pool plus degradation flags.
type RetrievalResult struct {
	// Candidates is the safety-filtered, retrieval-ordered pool.
	Candidates []Candidate `json:"candidates"`

	// Insufficient indicates fewer safe candidates than requested exist.
	Insufficient bool `json:"insufficient,omitempty"`

	// Fallback indicates the exact-scan path served this result.
	Fallback bool `json:"fallback,omitempty"`
}

// NextResult is the response of one next() call: either a ranked item
// list or a meal composition, per the session intent.
type NextResult struct {
	// Items is the ranked item list for non-composing intents.
	Items []Candidate `json:"items,omitempty"`

	// Composition is the proposed meal for composing intents.
	Composition *Composition `json:"composition,omitempty"`

	// Insufficient indicates the candidate pool was short.
	Insufficient bool `json:"insufficient,omitempty"`

	// Fallback indicates retrieval used the exact-scan path.
	Fallback bool `json:"fallback,omitempty"`
}

// CompositionAction is the requested handling of composition feedback.
type CompositionAction string

const (
	// ActionRegeneratePartial regenerates rejected courses only.
	ActionRegeneratePartial CompositionAction = "regenerate_partial"
	// ActionOrderAll signals the caller to proceed to complete().
	ActionOrderAll CompositionAction = "order_all"
)
