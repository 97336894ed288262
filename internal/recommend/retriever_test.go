// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/platefinder/internal/recommend/vectorindex"
)

type fakeItemSource struct {
	menu    []MenuItem
	menuErr error
}

func (f *fakeItemSource) GetItem(_ context.Context, id string) (*MenuItem, error) {
	for i := range f.menu {
		if f.menu[i].ID == id {
			item := f.menu[i]
			return &item, nil
		}
	}
	return nil, ErrItemNotFound
}

func (f *fakeItemSource) GetMenu(_ context.Context, _ string) ([]MenuItem, error) {
	if f.menuErr != nil {
		return nil, f.menuErr
	}
	return f.menu, nil
}

func testRetriever(items ItemSource, handle *vectorindex.Handle) *Retriever {
	if handle == nil {
		handle = vectorindex.NewHandle(nil)
	}
	return NewRetriever(
		RetrievalConfig{PoolMultiplier: 3, MinPoolSize: 10},
		LimitsConfig{DefaultCount: 5, MaxCount: 25, QueryTimeout: time.Second},
		items, handle, zerolog.Nop(),
	)
}

func menuItem(id string, category Category, axis int) MenuItem {
	item := MenuItem{ID: id, RestaurantID: "r1", Category: category}
	item.Taste[axis] = 0.8
	return item
}

func TestRetrieveAllergenFilterIsAbsolute(t *testing.T) {
	unsafe := menuItem("peanut-dish", CategoryMain, 0)
	unsafe.Allergens = []string{"peanut"}
	safe := menuItem("safe-dish", CategoryMain, 1)

	r := testRetriever(&fakeItemSource{menu: []MenuItem{unsafe, safe}}, nil)

	profile := NewUserTasteProfile("u1")
	profile.Allergies = []string{"peanut"}

	// Taste aligned with the unsafe item; the filter must still win.
	var taste TasteVector
	taste[0] = 1

	res, err := r.Retrieve(context.Background(), profile, "r1", IntentMainOnly, taste, 5, nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, c := range res.Candidates {
		if c.Item.ID == "peanut-dish" {
			t.Fatal("allergen-violating item returned")
		}
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Item.ID != "safe-dish" {
		t.Errorf("candidates = %+v, want only safe-dish", res.Candidates)
	}
}

func TestRetrieveDietaryFilter(t *testing.T) {
	vegan := menuItem("vegan-dish", CategoryMain, 0)
	vegan.DietaryTags = []string{"vegan"}
	meaty := menuItem("meaty-dish", CategoryMain, 1)

	r := testRetriever(&fakeItemSource{menu: []MenuItem{vegan, meaty}}, nil)

	profile := NewUserTasteProfile("u1")
	profile.DietaryRules = []string{"vegan"}

	res, err := r.Retrieve(context.Background(), profile, "r1", IntentMainOnly, TasteVector{}, 5, nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Item.ID != "vegan-dish" {
		t.Errorf("candidates = %+v, want only vegan-dish", res.Candidates)
	}
}

func TestRetrieveExclusions(t *testing.T) {
	r := testRetriever(&fakeItemSource{menu: []MenuItem{
		menuItem("a", CategoryMain, 0),
		menuItem("b", CategoryMain, 1),
	}}, nil)

	exclude := map[string]struct{}{"a": {}}
	res, err := r.Retrieve(context.Background(), NewUserTasteProfile("u1"), "r1", IntentMainOnly, TasteVector{}, 5, exclude)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Item.ID != "b" {
		t.Errorf("candidates = %+v, want only b", res.Candidates)
	}
}

func TestRetrieveIntentCategoryEligibility(t *testing.T) {
	menu := []MenuItem{
		menuItem("app", CategoryAppetizer, 0),
		menuItem("main", CategoryMain, 1),
		menuItem("breakfast", CategoryBreakfast, 2),
		menuItem("dessert", CategoryDessert, 3),
		menuItem("beverage", CategoryBeverage, 4),
		menuItem("side", CategorySide, 5),
	}

	tests := []struct {
		intent MealIntent
		want   map[string]bool
	}{
		{IntentMainOnly, map[string]bool{"main": true, "breakfast": true}},
		{IntentDessertOnly, map[string]bool{"dessert": true}},
		{IntentBeverageOnly, map[string]bool{"beverage": true}},
		{IntentLightSnack, map[string]bool{"app": true, "beverage": true, "side": true}},
	}

	for _, tt := range tests {
		t.Run(tt.intent.String(), func(t *testing.T) {
			r := testRetriever(&fakeItemSource{menu: menu}, nil)
			res, err := r.Retrieve(context.Background(), NewUserTasteProfile("u1"), "r1", tt.intent, TasteVector{}, 10, nil)
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if len(res.Candidates) != len(tt.want) {
				t.Fatalf("got %d candidates, want %d", len(res.Candidates), len(tt.want))
			}
			for _, c := range res.Candidates {
				if !tt.want[c.Item.ID] {
					t.Errorf("unexpected candidate %s for intent %s", c.Item.ID, tt.intent)
				}
			}
		})
	}
}

func TestRetrieveInsufficientFlag(t *testing.T) {
	r := testRetriever(&fakeItemSource{menu: []MenuItem{menuItem("only", CategoryMain, 0)}}, nil)

	res, err := r.Retrieve(context.Background(), NewUserTasteProfile("u1"), "r1", IntentMainOnly, TasteVector{}, 5, nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !res.Insufficient {
		t.Error("Insufficient = false, want true for an undersized pool")
	}
	if len(res.Candidates) != 1 {
		t.Errorf("len = %d, want 1 (short pools still return what exists)", len(res.Candidates))
	}
}

func TestRetrieveEmptySafePool(t *testing.T) {
	unsafe := menuItem("a", CategoryMain, 0)
	unsafe.Allergens = []string{"dairy"}

	r := testRetriever(&fakeItemSource{menu: []MenuItem{unsafe}}, nil)
	profile := NewUserTasteProfile("u1")
	profile.Allergies = []string{"dairy"}

	res, err := r.Retrieve(context.Background(), profile, "r1", IntentMainOnly, TasteVector{}, 5, nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want nil for an empty safe pool", err)
	}
	if len(res.Candidates) != 0 || !res.Insufficient {
		t.Errorf("result = %+v, want empty candidates with Insufficient", res)
	}
}

func TestRetrieveFallbackWithoutIndex(t *testing.T) {
	close := menuItem("close", CategoryMain, 0)
	far := menuItem("far", CategoryMain, 5)

	r := testRetriever(&fakeItemSource{menu: []MenuItem{far, close}}, nil)

	var taste TasteVector
	taste[0] = 1

	res, err := r.Retrieve(context.Background(), NewUserTasteProfile("u1"), "r1", IntentMainOnly, taste, 5, nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !res.Fallback {
		t.Error("Fallback = false, want true with no index built")
	}
	if res.Candidates[0].Item.ID != "close" {
		t.Errorf("first candidate = %s, want close (taste cosine ordering)", res.Candidates[0].Item.ID)
	}
}

func TestRetrieveIndexPath(t *testing.T) {
	a := menuItem("a", CategoryMain, 0)
	a.Embedding = []float64{1, 0, 0}
	b := menuItem("b", CategoryMain, 0)
	b.Embedding = []float64{0, 1, 0}

	idx, err := vectorindex.Build(map[string][]float64{
		"a": a.Embedding,
		"b": b.Embedding,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	r := testRetriever(&fakeItemSource{menu: []MenuItem{a, b}}, vectorindex.NewHandle(idx))

	var taste TasteVector
	taste[0] = 1

	res, err := r.Retrieve(context.Background(), NewUserTasteProfile("u1"), "r1", IntentMainOnly, taste, 5, nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if res.Fallback {
		t.Error("Fallback = true, want false with a live index")
	}
	if len(res.Candidates) != 2 {
		t.Errorf("len = %d, want 2", len(res.Candidates))
	}
}

func TestRetrieveMenuError(t *testing.T) {
	wantErr := errors.New("store down")
	r := testRetriever(&fakeItemSource{menuErr: wantErr}, nil)

	_, err := r.Retrieve(context.Background(), NewUserTasteProfile("u1"), "r1", IntentMainOnly, TasteVector{}, 5, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("Retrieve() error = %v, want wrapped store error", err)
	}
}

func TestRetrieveDefaultCount(t *testing.T) {
	menu := make([]MenuItem, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		menu = append(menu, menuItem(id, CategoryMain, 0))
	}

	r := testRetriever(&fakeItemSource{menu: menu}, nil)

	res, err := r.Retrieve(context.Background(), NewUserTasteProfile("u1"), "r1", IntentMainOnly, TasteVector{}, 0, nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	// count defaults to 5; 8 safe items exceed it, so the pool is ample.
	if res.Insufficient {
		t.Error("Insufficient = true, want false with more safe items than the default count")
	}
}
