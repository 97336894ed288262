// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package metrics provides Prometheus instrumentation for the
// recommendation pipeline and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/platefinder/internal/recommend"
)

var (
	// Pipeline metrics

	NextDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_next_duration_seconds",
			Help:    "Duration of next() pipeline runs in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"intent"},
	)

	NextFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_next_fallback_total",
			Help: "Total next() calls served by the exact-scan fallback path",
		},
	)

	NextInsufficient = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_next_insufficient_total",
			Help: "Total next() calls returning fewer candidates than requested",
		},
	)

	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_feedback_events_total",
			Help: "Total processed feedback events",
		},
		[]string{"type"},
	)

	Compositions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_compositions_total",
			Help: "Total produced meal compositions",
		},
		[]string{"budget_relaxed", "harmony_relaxed"},
	)

	CommitConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_commit_conflicts_total",
			Help: "Total optimistic-version commit conflicts",
		},
		[]string{"record"},
	)

	IndexRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_index_rebuilds_total",
			Help: "Total index rebuild jobs by outcome",
		},
		[]string{"outcome"},
	)

	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_index_items",
			Help: "Number of items in the active vector index",
		},
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRebuild records one finished rebuild job.
func RecordRebuild(outcome string, items int) {
	IndexRebuilds.WithLabelValues(outcome).Inc()
	if outcome == "succeeded" {
		IndexSize.Set(float64(items))
	}
}

// Recorder implements recommend.MetricsRecorder over the package
// collectors.
type Recorder struct{}

// NewRecorder returns the pipeline metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveNext records one next() call.
func (Recorder) ObserveNext(intent recommend.MealIntent, duration time.Duration, fallback, insufficient bool) {
	NextDuration.WithLabelValues(intent.String()).Observe(duration.Seconds())
	if fallback {
		NextFallbacks.Inc()
	}
	if insufficient {
		NextInsufficient.Inc()
	}
}

// IncFeedback counts one processed feedback event.
func (Recorder) IncFeedback(feedbackType recommend.FeedbackType) {
	FeedbackEvents.WithLabelValues(string(feedbackType)).Inc()
}

// IncComposition counts one produced composition.
func (Recorder) IncComposition(budgetRelaxed, harmonyRelaxed bool) {
	Compositions.WithLabelValues(strconv.FormatBool(budgetRelaxed), strconv.FormatBool(harmonyRelaxed)).Inc()
}

// IncCommitConflict counts one optimistic-version retry.
func (Recorder) IncCommitConflict(record string) {
	CommitConflicts.WithLabelValues(record).Inc()
}
