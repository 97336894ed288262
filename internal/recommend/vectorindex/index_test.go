// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildValidation(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if _, err := Build(nil); err == nil {
			t.Fatal("Build(nil) must fail")
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Build(map[string][]float64{
			"a": {1, 0},
			"b": {1, 0, 0},
		})
		if err == nil {
			t.Fatal("mixed dimensions must fail")
		}
	})

	t.Run("zero dimension", func(t *testing.T) {
		if _, err := Build(map[string][]float64{"a": {}}); err == nil {
			t.Fatal("zero-dimension embedding must fail")
		}
	})
}

func TestQueryOrdering(t *testing.T) {
	idx, err := Build(map[string][]float64{
		"exact":      {1, 0, 0},
		"close":      {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
		"opposite":   {-1, 0, 0},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := idx.Query([]float64{1, 0, 0}, 4)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	want := []string{"exact", "close", "orthogonal", "opposite"}
	if len(results) != len(want) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(want))
	}
	for i, id := range want {
		if results[i].ID != id {
			t.Errorf("result %d = %s, want %s", i, results[i].ID, id)
		}
	}
	if math.Abs(results[0].Score-1) > 1e-9 {
		t.Errorf("exact match score = %v, want 1", results[0].Score)
	}
}

func TestQueryProbeNotNormalized(t *testing.T) {
	idx, err := Build(map[string][]float64{
		"a": {1, 0},
		"b": {0, 1},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	unit, err := idx.Query([]float64{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	scaled, err := idx.Query([]float64{100, 0}, 1)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if unit[0].ID != scaled[0].ID || math.Abs(unit[0].Score-scaled[0].Score) > 1e-9 {
		t.Errorf("scaled probe result %+v differs from unit probe %+v", scaled[0], unit[0])
	}
}

func TestQueryEdgeCases(t *testing.T) {
	idx, err := Build(map[string][]float64{"a": {1, 0}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	t.Run("dimension mismatch", func(t *testing.T) {
		if _, err := idx.Query([]float64{1, 0, 0}, 1); err == nil {
			t.Fatal("mismatched probe dimension must fail")
		}
	})

	t.Run("non-positive k", func(t *testing.T) {
		results, err := idx.Query([]float64{1, 0}, 0)
		if err != nil || results != nil {
			t.Errorf("Query(k=0) = (%v, %v), want (nil, nil)", results, err)
		}
	})

	t.Run("k beyond size", func(t *testing.T) {
		results, err := idx.Query([]float64{1, 0}, 10)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(results) != 1 {
			t.Errorf("len = %d, want 1", len(results))
		}
	})
}

func TestBuildDeterministic(t *testing.T) {
	// Large enough to engage partitioning.
	embeddings := make(map[string][]float64, 100)
	for i := 0; i < 100; i++ {
		angle := float64(i) * 0.0628
		embeddings[fmt.Sprintf("item-%03d", i)] = []float64{math.Cos(angle), math.Sin(angle), float64(i % 7)}
	}

	first, err := Build(embeddings)
	if err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	second, err := Build(embeddings)
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}

	probe := []float64{0.5, 0.5, 3}
	a, err := first.Query(probe, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	b, err := second.Query(probe, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("result lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	embeddings := make(map[string][]float64, 80)
	for i := 0; i < 80; i++ {
		embeddings[fmt.Sprintf("item-%03d", i)] = []float64{float64(i), float64(i % 5), 1}
	}

	idx, err := Build(embeddings)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.bin")
	if err := idx.Persist(path); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Size() != idx.Size() || loaded.Dimension() != idx.Dimension() {
		t.Errorf("loaded (size=%d, dim=%d), want (size=%d, dim=%d)",
			loaded.Size(), loaded.Dimension(), idx.Size(), idx.Dimension())
	}

	probe := []float64{3, 2, 1}
	a, err := idx.Query(probe, 15)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	b, err := loaded.Query(probe, 15)
	if err != nil {
		t.Fatalf("loaded Query() error = %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("result %d differs after round trip: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	if err == nil {
		t.Fatal("Load() of a missing file must fail")
	}
	// The engine treats a missing snapshot as a normal first start.
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist in the chain", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.bin")
	if err := os.WriteFile(path, []byte("not an index"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() of a corrupt file must fail")
	}
}

func TestHandleSwap(t *testing.T) {
	h := NewHandle(nil)
	if h.Get() != nil {
		t.Fatal("fresh handle must return nil")
	}

	idx, err := Build(map[string][]float64{"a": {1}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if prev := h.Swap(idx); prev != nil {
		t.Errorf("first Swap() returned %v, want nil", prev)
	}
	if h.Get() != idx {
		t.Error("Get() must return the swapped-in index")
	}

	next, err := Build(map[string][]float64{"b": {1}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if prev := h.Swap(next); prev != idx {
		t.Error("Swap() must return the previous index")
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	idx, err := Build(map[string][]float64{
		"zero": {0, 0},
		"unit": {1, 0},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := idx.Query([]float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	for _, r := range results {
		if r.ID == "zero" && r.Score != 0 {
			t.Errorf("zero vector score = %v, want 0", r.Score)
		}
	}
}
