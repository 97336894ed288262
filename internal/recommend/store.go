// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"context"
	"time"
)

// SessionStore persists recommendation sessions with optimistic
// concurrency. Put succeeds only when the stored version still equals
// expectedVersion; on success the stored record's version is
// expectedVersion+1.
type SessionStore interface {
	// GetSession returns the session by id, or ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*RecommendationSession, error)

	// PutSession writes the session if the stored version matches.
	// Returns ErrConcurrentModification on a version mismatch. An
	// expectedVersion of zero creates the record.
	PutSession(ctx context.Context, session *RecommendationSession, expectedVersion uint64) error
}

// ProfileStore persists user taste profiles with the same optimistic
// versioning contract as SessionStore.
type ProfileStore interface {
	// GetProfile returns the profile by user id, or ErrProfileNotFound.
	GetProfile(ctx context.Context, userID string) (*UserTasteProfile, error)

	// PutProfile writes the profile if the stored version matches.
	// Returns ErrConcurrentModification on a version mismatch. An
	// expectedVersion of zero creates the record.
	PutProfile(ctx context.Context, profile *UserTasteProfile, expectedVersion uint64) error
}

// FeedbackPublisher emits feedback events to interested subscribers
// (analytics log, future model training). Publishing is best-effort
// from the engine's point of view; a failed publish never fails the
// user-facing operation.
type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, event FeedbackEvent) error
}

// MetricsRecorder receives pipeline observations. Implementations must
// be safe for concurrent use. The engine tolerates a nil recorder.
type MetricsRecorder interface {
	// ObserveNext records one next() call with its latency and
	// degradation flags.
	ObserveNext(intent MealIntent, duration time.Duration, fallback, insufficient bool)

	// IncFeedback counts one processed feedback event.
	IncFeedback(feedbackType FeedbackType)

	// IncComposition counts one produced composition.
	IncComposition(budgetRelaxed, harmonyRelaxed bool)

	// IncCommitConflict counts one optimistic-version retry.
	IncCommitConflict(record string)
}
