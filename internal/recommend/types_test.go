// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"math"
	"testing"

	json "github.com/goccy/go-json"
)

func TestParseMealIntent(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   MealIntent
		wantOK bool
	}{
		{"full meal", "full_meal", IntentFullMeal, true},
		{"main only", "main_only", IntentMainOnly, true},
		{"appetizer only", "appetizer_only", IntentAppetizerOnly, true},
		{"dessert only", "dessert_only", IntentDessertOnly, true},
		{"beverage only", "beverage_only", IntentBeverageOnly, true},
		{"light snack", "light_snack", IntentLightSnack, true},
		{"unknown", "brunch", IntentFullMeal, false},
		{"empty", "", IntentFullMeal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMealIntent(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseMealIntent(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMealIntentStringRoundTrip(t *testing.T) {
	intents := []MealIntent{
		IntentFullMeal, IntentMainOnly, IntentAppetizerOnly,
		IntentDessertOnly, IntentBeverageOnly, IntentLightSnack,
	}
	for _, intent := range intents {
		got, ok := ParseMealIntent(intent.String())
		if !ok || got != intent {
			t.Errorf("ParseMealIntent(%q) = (%v, %v), want (%v, true)", intent.String(), got, ok, intent)
		}
	}
}

func TestCourseForCategory(t *testing.T) {
	tests := []struct {
		category Category
		want     Course
		wantOK   bool
	}{
		{CategoryAppetizer, CourseAppetizer, true},
		{CategoryMain, CourseMain, true},
		{CategoryBreakfast, CourseMain, true},
		{CategoryDessert, CourseDessert, true},
		{CategoryBeverage, CourseBeverage, true},
		{CategorySide, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			got, ok := CourseForCategory(tt.category)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CourseForCategory(%q) = (%q, %v), want (%q, %v)", tt.category, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHasAllergen(t *testing.T) {
	item := &MenuItem{Allergens: []string{"peanut", "shellfish"}}

	tests := []struct {
		name      string
		allergies []string
		want      bool
	}{
		{"match", []string{"peanut"}, true},
		{"match second", []string{"dairy", "shellfish"}, true},
		{"no match", []string{"gluten"}, false},
		{"empty allergies", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := item.HasAllergen(tt.allergies); got != tt.want {
				t.Errorf("HasAllergen(%v) = %v, want %v", tt.allergies, got, tt.want)
			}
		})
	}

	t.Run("item without allergens", func(t *testing.T) {
		clean := &MenuItem{}
		if clean.HasAllergen([]string{"peanut"}) {
			t.Error("item without allergens should never match")
		}
	})
}

func TestSatisfiesDiet(t *testing.T) {
	item := &MenuItem{DietaryTags: []string{"vegan", "gluten_free"}}

	tests := []struct {
		name  string
		rules []string
		want  bool
	}{
		{"no rules", nil, true},
		{"single satisfied", []string{"vegan"}, true},
		{"all satisfied", []string{"vegan", "gluten_free"}, true},
		{"one missing", []string{"vegan", "halal"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := item.SatisfiesDiet(tt.rules); got != tt.want {
				t.Errorf("SatisfiesDiet(%v) = %v, want %v", tt.rules, got, tt.want)
			}
		})
	}
}

func TestBetaParamsMean(t *testing.T) {
	tests := []struct {
		name string
		b    BetaParams
		want float64
	}{
		{"uniform prior", BetaParams{Alpha: 1, Beta: 1}, 0.5},
		{"positive evidence", BetaParams{Alpha: 3, Beta: 1}, 0.75},
		{"zero guards", BetaParams{}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Mean(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Mean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoringWeightsNormalize(t *testing.T) {
	t.Run("scales to weight sum", func(t *testing.T) {
		w := ScoringWeights{Taste: 2, Cuisine: 1, Popularity: 1, Exploration: 0}.Normalize()
		if math.Abs(w.Sum()-WeightSum) > 1e-9 {
			t.Errorf("Sum() = %v, want %v", w.Sum(), WeightSum)
		}
		if math.Abs(w.Taste-0.5) > 1e-9 {
			t.Errorf("Taste = %v, want 0.5", w.Taste)
		}
	})

	t.Run("zero vector becomes uniform", func(t *testing.T) {
		w := ScoringWeights{}.Normalize()
		if math.Abs(w.Sum()-WeightSum) > 1e-9 {
			t.Errorf("Sum() = %v, want %v", w.Sum(), WeightSum)
		}
		if w.Taste != w.Cuisine || w.Cuisine != w.Popularity || w.Popularity != w.Exploration {
			t.Errorf("expected uniform weights, got %+v", w)
		}
	})
}

func TestUncertainty(t *testing.T) {
	cold := NewUserTasteProfile("u1")
	hot := NewUserTasteProfile("u1")
	for i := range hot.Axes {
		hot.Axes[i] = BetaParams{Alpha: 50, Beta: 50}
	}

	cu, hu := cold.Uncertainty(), hot.Uncertainty()
	if cu <= hu {
		t.Errorf("cold uncertainty %v should exceed heavy-evidence uncertainty %v", cu, hu)
	}
	if cu < 0.5 || cu > 1 {
		t.Errorf("cold uncertainty = %v, want close to 1", cu)
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	if StatusActive.Terminal() {
		t.Error("active must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusAbandoned.Terminal() {
		t.Error("completed and abandoned must be terminal")
	}
}

func TestFeedbackTypeProperties(t *testing.T) {
	tests := []struct {
		t        FeedbackType
		valid    bool
		positive bool
		excludes bool
	}{
		{FeedbackLike, true, true, false},
		{FeedbackDislike, true, false, true},
		{FeedbackSkip, true, false, true},
		{FeedbackSelect, true, true, false},
		{FeedbackRating, true, true, false},
		{FeedbackType("meh"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			if got := tt.t.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.t.Positive(); got != tt.positive {
				t.Errorf("Positive() = %v, want %v", got, tt.positive)
			}
			if got := tt.t.Excludes(); got != tt.excludes {
				t.Errorf("Excludes() = %v, want %v", got, tt.excludes)
			}
		})
	}
}

func TestSessionJSONRoundTripKeepsBookkeepingMaps(t *testing.T) {
	session := &RecommendationSession{
		ID:          "s1",
		UserID:      "u1",
		Shown:       make(map[string]struct{}),
		Excluded:    make(map[string]struct{}),
		CourseShown: make(map[Course][]string),
		Status:      StatusActive,
	}

	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out RecommendationSession
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if out.Shown == nil || out.Excluded == nil || out.CourseShown == nil {
		t.Fatalf("bookkeeping maps dropped in round-trip: shown=%v excluded=%v courseShown=%v",
			out.Shown, out.Excluded, out.CourseShown)
	}

	// Composing intents append directly after a store reload.
	out.CourseShown[CourseMain] = append(out.CourseShown[CourseMain], "m1")
	if len(out.CourseShown[CourseMain]) != 1 {
		t.Errorf("CourseShown[main] = %v, want one entry", out.CourseShown[CourseMain])
	}
}

func TestCompositionSlot(t *testing.T) {
	comp := &Composition{Slots: []CompositionSlot{
		{Course: CourseMain, ItemID: "m1"},
		{Course: CourseDessert, ItemID: "d1"},
	}}

	if slot := comp.Slot(CourseMain); slot == nil || slot.ItemID != "m1" {
		t.Errorf("Slot(main) = %+v, want item m1", slot)
	}
	if slot := comp.Slot(CourseBeverage); slot != nil {
		t.Errorf("Slot(beverage) = %+v, want nil", slot)
	}
}
