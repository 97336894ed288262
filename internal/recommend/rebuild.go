// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/platefinder/internal/recommend/vectorindex"
)

// CatalogSource provides the full item catalog for index rebuilds.
type CatalogSource interface {
	// AllItems returns every active menu item across restaurants.
	AllItems(ctx context.Context) ([]MenuItem, error)
}

// JobStatus is the lifecycle state of one rebuild job.
type JobStatus string

const (
	// JobRunning means the rebuild is in flight.
	JobRunning JobStatus = "running"
	// JobSucceeded means the new index was swapped in.
	JobSucceeded JobStatus = "succeeded"
	// JobFailed means the rebuild errored; the previous index stays live.
	JobFailed JobStatus = "failed"
	// JobCancelled means the rebuild was cancelled before completion.
	JobCancelled JobStatus = "cancelled"
)

// RebuildJob tracks one index rebuild.
type RebuildJob struct {
	// ID is the job identifier.
	ID string `json:"id"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// ItemCount is the number of items indexed on success.
	ItemCount int `json:"item_count,omitempty"`

	// Error holds the failure message for failed jobs.
	Error string `json:"error,omitempty"`
}

// Rebuilder rebuilds the vector index from the item catalog. At most
// one job runs at a time. Queries are served by the previous index for
// the entire rebuild; the handle swaps only after the new index is
// fully built and persisted, so a failed rebuild leaves the live index
// untouched.
type Rebuilder struct {
	config  RebuildConfig
	logger  zerolog.Logger
	catalog CatalogSource
	handle  *vectorindex.Handle

	// persistPath is where the successful index snapshot is written.
	// Empty disables persistence.
	persistPath string

	// record is an optional outcome hook for metrics.
	record func(outcome string, items int)

	mu      sync.Mutex
	jobs    map[string]*RebuildJob
	running string
	cancel  context.CancelFunc
}

// SetRecorder installs an outcome hook called once per finished job.
// Must be set before the first rebuild starts.
func (r *Rebuilder) SetRecorder(record func(outcome string, items int)) {
	r.record = record
}

// NewRebuilder creates an index rebuilder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRebuilder(cfg RebuildConfig, catalog CatalogSource, handle *vectorindex.Handle, persistPath string, logger zerolog.Logger) *Rebuilder {
	return &Rebuilder{
		config:      cfg,
		logger:      logger.With().Str("component", "rebuilder").Logger(),
		catalog:     catalog,
		handle:      handle,
		persistPath: persistPath,
		jobs:        make(map[string]*RebuildJob),
	}
}

// Start launches an asynchronous rebuild and returns its job record.
// Returns ErrRebuildInProgress when a job is already running.
func (r *Rebuilder) Start(ctx context.Context) (*RebuildJob, error) {
	r.mu.Lock()
	if r.running != "" {
		r.mu.Unlock()
		return nil, ErrRebuildInProgress
	}

	job := &RebuildJob{
		ID:        uuid.NewString(),
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
	r.jobs[job.ID] = job
	r.running = job.ID

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.Timeout)
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		r.run(runCtx, job.ID)
	}()

	snapshot := *job
	return &snapshot, nil
}

// RunOnce performs a synchronous rebuild, used by the startup and
// scheduled paths.
func (r *Rebuilder) RunOnce(ctx context.Context) error {
	job, err := r.Start(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Cancel(job.ID)
			return ctx.Err()
		case <-ticker.C:
			current, err := r.Status(job.ID)
			if err != nil {
				return err
			}
			switch current.Status {
			case JobSucceeded:
				return nil
			case JobFailed:
				return fmt.Errorf("index rebuild failed: %s", current.Error)
			case JobCancelled:
				return fmt.Errorf("index rebuild cancelled")
			case JobRunning:
			}
		}
	}
}

// Status returns a copy of the job record, or ErrJobNotFound.
func (r *Rebuilder) Status(jobID string) (*RebuildJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Cancel aborts the job if it is still running.
func (r *Rebuilder) Cancel(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.ID == r.running && r.cancel != nil {
		r.cancel()
	}
	return nil
}

// run executes the rebuild and finalizes the job record.
func (r *Rebuilder) run(ctx context.Context, jobID string) {
	start := time.Now()

	count, err := r.rebuild(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	job := r.jobs[jobID]
	job.FinishedAt = time.Now()
	r.running = ""
	r.cancel = nil

	switch {
	case err == nil:
		job.Status = JobSucceeded
		job.ItemCount = count
		r.logger.Info().
			Str("job_id", jobID).
			Int("items", count).
			Dur("elapsed", time.Since(start)).
			Msg("index rebuild complete")
	case ctx.Err() != nil:
		job.Status = JobCancelled
		job.Error = ctx.Err().Error()
		r.logger.Warn().Str("job_id", jobID).Msg("index rebuild cancelled")
	default:
		job.Status = JobFailed
		job.Error = err.Error()
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("index rebuild failed")
	}

	if r.record != nil {
		r.record(string(job.Status), job.ItemCount)
	}
}

// rebuild builds, persists, and swaps the new index. The swap is the
// final step.
func (r *Rebuilder) rebuild(ctx context.Context) (int, error) {
	items, err := r.catalog.AllItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	vectors := make(map[string][]float64, len(items))
	for i := range items {
		if len(items[i].Embedding) == 0 {
			continue
		}
		vectors[items[i].ID] = items[i].Embedding
	}

	idx, err := vectorindex.Build(vectors)
	if err != nil {
		return 0, fmt.Errorf("build index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if r.persistPath != "" {
		if err := idx.Persist(r.persistPath); err != nil {
			return 0, fmt.Errorf("persist index: %w", err)
		}
	}

	r.handle.Swap(idx)
	return len(vectors), nil
}
