// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func testComposer() *Composer {
	return NewComposer(ComposerConfig{
		MinHarmony:             0.35,
		HarmonyRelaxStep:       0.1,
		BudgetRelaxRatio:       1.2,
		MaxCandidatesPerCourse: 8,
	}, zerolog.Nop())
}

// harmoniousItem builds an item that pairs well with others from the
// same helper: distinct taste axes, distinct textures, shared cuisine.
func harmoniousItem(id string, axis int, texture string, price float64) MenuItem {
	item := MenuItem{
		ID:       id,
		Price:    price,
		Texture:  texture,
		Cuisines: []string{"italian"},
	}
	item.Taste[axis] = 0.9
	return item
}

func fullMealPools(appPrice, mainPrice, dessertPrice float64) map[Course][]Candidate {
	return map[Course][]Candidate{
		CourseAppetizer: {{Item: harmoniousItem("app-1", 0, "crispy", appPrice), RerankScore: 0.8}},
		CourseMain:      {{Item: harmoniousItem("main-1", 3, "tender", mainPrice), RerankScore: 0.9}},
		CourseDessert:   {{Item: harmoniousItem("des-1", 6, "creamy", dessertPrice), RerankScore: 0.7}},
	}
}

var fullMealCourses = []Course{CourseAppetizer, CourseMain, CourseDessert}

func TestComposeWithinConstraints(t *testing.T) {
	c := testComposer()

	comp, err := c.Compose(fullMealPools(8, 15, 6), fullMealCourses, 40, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if comp.HarmonyRelaxed || comp.BudgetRelaxed {
		t.Errorf("relaxation flags = (%v, %v), want both false", comp.HarmonyRelaxed, comp.BudgetRelaxed)
	}
	if comp.TotalPrice != 29 {
		t.Errorf("TotalPrice = %v, want 29", comp.TotalPrice)
	}
	if len(comp.Slots) != 3 {
		t.Fatalf("len(Slots) = %d, want 3", len(comp.Slots))
	}
	for i, course := range fullMealCourses {
		if comp.Slots[i].Course != course {
			t.Errorf("slot %d course = %s, want %s", i, comp.Slots[i].Course, course)
		}
		if comp.Slots[i].Feedback != CoursePending {
			t.Errorf("slot %d feedback = %s, want pending", i, comp.Slots[i].Feedback)
		}
	}
	if comp.Harmony < 0.35 {
		t.Errorf("Harmony = %v, want >= 0.35 without relaxation", comp.Harmony)
	}
	if comp.ID == "" {
		t.Error("composition must carry an id")
	}
}

func TestComposePicksHighestScoringCombination(t *testing.T) {
	c := testComposer()

	pools := fullMealPools(8, 15, 6)
	better := harmoniousItem("main-2", 4, "flaky", 12)
	pools[CourseMain] = append(pools[CourseMain], Candidate{Item: better, RerankScore: 0.95})

	comp, err := c.Compose(pools, fullMealCourses, 40, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if comp.Slot(CourseMain).ItemID != "main-2" {
		t.Errorf("main slot = %s, want main-2", comp.Slot(CourseMain).ItemID)
	}
}

func TestComposeRelaxesHarmony(t *testing.T) {
	c := testComposer()

	// Identical taste, texture, and disjoint cuisines score 0.21, below
	// the 0.35 floor.
	clashA := MenuItem{ID: "a", Price: 5, Texture: "soft", Cuisines: []string{"thai"}}
	clashA.Taste[0] = 0.9
	clashB := MenuItem{ID: "b", Price: 5, Texture: "soft", Cuisines: []string{"french"}}
	clashB.Taste[0] = 0.9

	pools := map[Course][]Candidate{
		CourseAppetizer: {{Item: clashA, RerankScore: 0.8}},
		CourseMain:      {{Item: clashB, RerankScore: 0.9}},
	}

	comp, err := c.Compose(pools, []Course{CourseAppetizer, CourseMain}, 100, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !comp.HarmonyRelaxed {
		t.Error("HarmonyRelaxed = false, want true")
	}
	if comp.BudgetRelaxed {
		t.Error("BudgetRelaxed = true, want false")
	}
	if comp.Harmony >= 0.35 {
		t.Errorf("Harmony = %v, want below the original floor", comp.Harmony)
	}
}

func TestComposeRelaxesBudget(t *testing.T) {
	c := testComposer()

	// Cheapest combination is 33 against a budget of 30; 1.2x widening
	// admits it.
	comp, err := c.Compose(fullMealPools(10, 15, 8), fullMealCourses, 30, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !comp.BudgetRelaxed {
		t.Error("BudgetRelaxed = false, want true")
	}
	if comp.TotalPrice != 33 {
		t.Errorf("TotalPrice = %v, want 33", comp.TotalPrice)
	}
}

func TestComposeIgnoresBudgetAsLastResort(t *testing.T) {
	c := testComposer()

	// 90 total against a budget of 10: even the widened budget fails,
	// so the final pass drops the budget entirely.
	comp, err := c.Compose(fullMealPools(30, 40, 20), fullMealCourses, 10, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !comp.BudgetRelaxed {
		t.Error("BudgetRelaxed = false, want true")
	}
	if comp.TotalPrice != 90 {
		t.Errorf("TotalPrice = %v, want 90", comp.TotalPrice)
	}
}

func TestComposeZeroBudgetIsUnconstrained(t *testing.T) {
	c := testComposer()

	comp, err := c.Compose(fullMealPools(100, 200, 50), fullMealCourses, 0, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if comp.BudgetRelaxed {
		t.Error("BudgetRelaxed = true, want false with no budget")
	}
}

func TestComposeEmptyPool(t *testing.T) {
	c := testComposer()

	pools := fullMealPools(8, 15, 6)
	pools[CourseDessert] = nil

	_, err := c.Compose(pools, fullMealCourses, 40, nil)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Compose() error = %v, want ErrItemNotFound", err)
	}
}

func TestComposeNoCourses(t *testing.T) {
	c := testComposer()

	_, err := c.Compose(nil, nil, 40, nil)
	if !errors.Is(err, ErrNoCourseSlots) {
		t.Errorf("Compose() error = %v, want ErrNoCourseSlots", err)
	}
}

func TestComposePinnedSlotCarried(t *testing.T) {
	c := testComposer()

	pools := fullMealPools(8, 15, 6)
	pools[CourseMain] = append(pools[CourseMain], Candidate{Item: harmoniousItem("main-2", 4, "flaky", 12), RerankScore: 0.99})
	pinned := map[Course]CompositionSlot{
		CourseMain: {Course: CourseMain, ItemID: "main-1", Price: 15},
	}

	comp, err := c.Compose(pools, fullMealCourses, 40, pinned)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	slot := comp.Slot(CourseMain)
	if slot.ItemID != "main-1" {
		t.Errorf("pinned main = %s, want main-1 despite a higher-scoring alternative", slot.ItemID)
	}
	if slot.Feedback != CourseAccepted {
		t.Errorf("pinned slot feedback = %s, want accepted", slot.Feedback)
	}
	for _, course := range []Course{CourseAppetizer, CourseDessert} {
		if comp.Slot(course).Feedback != CoursePending {
			t.Errorf("%s feedback = %s, want pending", course, comp.Slot(course).Feedback)
		}
	}
}

func TestComposePinnedItemMissingFromPool(t *testing.T) {
	c := testComposer()

	pools := fullMealPools(8, 15, 6)
	delete(pools, CourseMain)
	pinned := map[Course]CompositionSlot{
		CourseMain: {Course: CourseMain, ItemID: "gone-1", Price: 18},
	}

	comp, err := c.Compose(pools, fullMealCourses, 40, pinned)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	slot := comp.Slot(CourseMain)
	if slot.ItemID != "gone-1" || slot.Price != 18 {
		t.Errorf("synthesized pinned slot = %+v, want gone-1 at 18", slot)
	}
	if slot.Feedback != CourseAccepted {
		t.Errorf("synthesized pinned slot feedback = %s, want accepted", slot.Feedback)
	}
}

func TestComposeDistinctIDs(t *testing.T) {
	c := testComposer()

	first, err := c.Compose(fullMealPools(8, 15, 6), fullMealCourses, 40, nil)
	if err != nil {
		t.Fatalf("first Compose() error = %v", err)
	}
	second, err := c.Compose(fullMealPools(8, 15, 6), fullMealCourses, 40, nil)
	if err != nil {
		t.Fatalf("second Compose() error = %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("composition ids must differ, both %s", first.ID)
	}
}

func TestCoursesForIntent(t *testing.T) {
	got := CoursesForIntent(IntentFullMeal)
	want := []Course{CourseAppetizer, CourseMain, CourseDessert}
	if len(got) != len(want) {
		t.Fatalf("CoursesForIntent(full_meal) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("course %d = %s, want %s", i, got[i], want[i])
		}
	}

	for _, intent := range []MealIntent{IntentMainOnly, IntentDessertOnly, IntentLightSnack} {
		if courses := CoursesForIntent(intent); courses != nil {
			t.Errorf("CoursesForIntent(%s) = %v, want nil", intent, courses)
		}
	}
}

func TestHarmonyScore(t *testing.T) {
	contrasting := harmoniousItem("a", 0, "crispy", 10)
	complementary := harmoniousItem("b", 5, "creamy", 10)
	clone := contrasting
	clone.ID = "c"

	t.Run("contrast beats sameness", func(t *testing.T) {
		high := harmonyScore(&contrasting, &complementary)
		low := harmonyScore(&contrasting, &clone)
		if high <= low {
			t.Errorf("contrasting pair %v should outscore identical pair %v", high, low)
		}
	})

	t.Run("bare item scores neutral", func(t *testing.T) {
		bare := MenuItem{ID: "pinned", Price: 12}
		if got := harmonyScore(&contrasting, &bare); got != 0.5 {
			t.Errorf("harmonyScore with bare item = %v, want 0.5", got)
		}
	})
}
