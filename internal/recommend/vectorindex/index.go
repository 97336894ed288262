// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package vectorindex provides approximate nearest-neighbor search over
// menu-item embeddings.
//
// The index normalizes all vectors to unit length so inner-product search
// is equivalent to cosine similarity. Partitioning uses a deterministic
// coarse quantizer (fixed seeding, fixed iteration count), so build and
// query are pure functions of their inputs: identical embeddings always
// produce identical indexes and identical query results.
//
// # Persistence
//
// Indexes are serialized with gob, gzip-compressed, and checksummed with
// SHA-256. Persist followed by Load yields an index returning identical
// query results for any probe vector.
//
// # Concurrency
//
// A built Index is immutable and safe for unlimited concurrent queries.
// Handle provides copy-on-write replacement: rebuilds construct a new
// Index off the hot path and swap it in atomically, so no reader ever
// observes a partially built index.
package vectorindex

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync/atomic"
)

// defaultProbes is the number of partitions scanned per query.
const defaultProbes = 3

// minPartitionFanout is the smallest item count at which partitioning
// engages; below it the index degenerates to a flat exact scan.
const minPartitionFanout = 64

// quantizerIterations is the fixed Lloyd iteration count for the coarse
// quantizer. Fixed so builds are deterministic.
const quantizerIterations = 8

// Result is one query hit.
type Result struct {
	// ID is the item identifier.
	ID string

	// Score is the cosine similarity in [-1, 1].
	Score float64
}

// Index is an immutable ANN index over unit-normalized embeddings.
type Index struct {
	dim       int
	ids       []string    // sorted ascending; position is the internal id
	vectors   [][]float64 // unit-normalized, parallel to ids
	centroids [][]float64
	lists     [][]int // partition member internal ids
	probes    int
}

// indexState is the gob-serializable form of an Index.
type indexState struct {
	Dim       int
	IDs       []string
	Vectors   [][]float64
	Centroids [][]float64
	Lists     [][]int
	Probes    int
}

// storedIndex is the on-disk envelope with integrity metadata.
type storedIndex struct {
	Checksum       string
	CompressedData []byte
}

// Build constructs an index from item embeddings. All embeddings must
// share the same dimension. Items are ingested in id order so the build
// is deterministic regardless of map iteration order.
func Build(embeddings map[string][]float64) (*Index, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings to index")
	}

	ids := make([]string, 0, len(embeddings))
	for id := range embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dim := len(embeddings[ids[0]])
	if dim == 0 {
		return nil, fmt.Errorf("zero-dimension embedding for item %s", ids[0])
	}

	vectors := make([][]float64, len(ids))
	for i, id := range ids {
		v := embeddings[id]
		if len(v) != dim {
			return nil, fmt.Errorf("dimension mismatch for item %s: got %d, want %d", id, len(v), dim)
		}
		vectors[i] = normalize(v)
	}

	idx := &Index{
		dim:     dim,
		ids:     ids,
		vectors: vectors,
		probes:  defaultProbes,
	}

	if len(ids) >= minPartitionFanout {
		idx.partition()
	}

	return idx, nil
}

// partition builds the deterministic coarse quantizer.
func (x *Index) partition() {
	n := len(x.ids)
	k := int(math.Sqrt(float64(n)))
	if k < 2 {
		return
	}

	// Seed centroids at evenly spaced positions over the id-sorted
	// vectors. No randomness.
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		seed := x.vectors[(c*n)/k]
		centroids[c] = append([]float64(nil), seed...)
	}

	assign := make([]int, n)
	for iter := 0; iter < quantizerIterations; iter++ {
		for i, v := range x.vectors {
			assign[i] = nearestCentroid(v, centroids)
		}

		// Recompute centroids as normalized member means. Empty
		// partitions keep their previous centroid.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, x.dim)
		}
		for i, c := range assign {
			for d, val := range x.vectors[i] {
				sums[c][d] += val
			}
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range sums[c] {
				sums[c][d] /= float64(counts[c])
			}
			centroids[c] = normalize(sums[c])
		}
	}

	lists := make([][]int, k)
	for i, v := range x.vectors {
		c := nearestCentroid(v, centroids)
		lists[c] = append(lists[c], i)
	}

	x.centroids = centroids
	x.lists = lists
}

// Query returns the k nearest item ids by cosine similarity, ties broken
// by item id ascending. The probe vector need not be normalized.
func (x *Index) Query(vector []float64, k int) ([]Result, error) {
	if len(vector) != x.dim {
		return nil, fmt.Errorf("probe dimension mismatch: got %d, want %d", len(vector), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	probe := normalize(vector)
	var members []int
	if x.centroids == nil {
		// Flat scan path for small indexes.
		members = nil
	} else {
		members = x.probeMembers(probe)
	}

	results := make([]Result, 0, k)
	score := func(i int) {
		s := dot(probe, x.vectors[i])
		results = append(results, Result{ID: x.ids[i], Score: s})
	}

	if members == nil {
		for i := range x.vectors {
			score(i)
		}
	} else {
		for _, i := range members {
			score(i)
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ID < results[b].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// probeMembers gathers the member ids of the nProbe nearest partitions,
// ordered deterministically.
func (x *Index) probeMembers(probe []float64) []int {
	type centroidDist struct {
		idx   int
		score float64
	}

	dists := make([]centroidDist, len(x.centroids))
	for c, cent := range x.centroids {
		dists[c] = centroidDist{idx: c, score: dot(probe, cent)}
	}
	sort.Slice(dists, func(a, b int) bool {
		if dists[a].score != dists[b].score {
			return dists[a].score > dists[b].score
		}
		return dists[a].idx < dists[b].idx
	})

	probes := x.probes
	if probes > len(dists) {
		probes = len(dists)
	}

	var members []int
	for _, d := range dists[:probes] {
		members = append(members, x.lists[d.idx]...)
	}
	return members
}

// Size returns the number of indexed items.
func (x *Index) Size() int {
	return len(x.ids)
}

// Dimension returns the embedding dimension.
func (x *Index) Dimension() int {
	return x.dim
}

// Persist writes the index to the given path atomically (write to a temp
// file, then rename).
func (x *Index) Persist(path string) error {
	state := indexState{
		Dim:       x.dim,
		IDs:       x.ids,
		Vectors:   x.vectors,
		Centroids: x.centroids,
		Lists:     x.lists,
		Probes:    x.probes,
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(state); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress index: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	sf := storedIndex{
		Checksum:       hex.EncodeToString(hash[:]),
		CompressedData: compressed.Bytes(),
	}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		_ = f.Close() //nolint:errcheck // write already failed
		return fmt.Errorf("write index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load reads an index previously written by Persist, verifying integrity.
func Load(path string) (*Index, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedIndex
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress index: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed index: %w", err)
	}

	hash := sha256.Sum256(raw)
	if hex.EncodeToString(hash[:]) != sf.Checksum {
		return nil, fmt.Errorf("index checksum mismatch")
	}

	var state indexState
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	return &Index{
		dim:       state.Dim,
		ids:       state.IDs,
		vectors:   state.Vectors,
		centroids: state.Centroids,
		lists:     state.Lists,
		probes:    state.Probes,
	}, nil
}

// Handle holds the active index behind an atomic pointer, giving readers
// lock-free access and rebuilds an atomic swap point.
type Handle struct {
	active atomic.Pointer[Index]
}

// NewHandle creates a handle, optionally pre-populated with an index.
func NewHandle(idx *Index) *Handle {
	h := &Handle{}
	if idx != nil {
		h.active.Store(idx)
	}
	return h
}

// Get returns the active index, or nil if none has been built yet.
func (h *Handle) Get() *Index {
	return h.active.Load()
}

// Swap installs a new index and returns the previous one. The previous
// index remains valid for in-flight readers.
func (h *Handle) Swap(idx *Index) *Index {
	return h.active.Swap(idx)
}

// normalize returns a unit-length copy of v. Zero vectors are returned
// as zero-filled copies so queries against them score 0 everywhere.
func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// dot returns the inner product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// nearestCentroid returns the index of the highest-inner-product
// centroid, ties broken by centroid index ascending.
func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestScore := math.Inf(-1)
	for c, cent := range centroids {
		s := dot(v, cent)
		if s > bestScore {
			bestScore = s
			best = c
		}
	}
	return best
}
