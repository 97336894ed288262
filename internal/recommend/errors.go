// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import "errors"

// Sentinel errors for the recommendation core. Degradations that return
// best-effort results (insufficient candidates, relaxed compositions,
// index fallback) are signalled via response flags, not errors.
var (
	// ErrItemNotFound indicates a referenced item id is absent.
	ErrItemNotFound = errors.New("item not found")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionTerminal indicates a mutation on a completed or
	// abandoned session. Non-retryable.
	ErrSessionTerminal = errors.New("session is terminal")

	// ErrProfileNotFound indicates no taste profile exists for the user.
	ErrProfileNotFound = errors.New("taste profile not found")

	// ErrIndexUnavailable indicates the vector index cannot serve
	// queries. Recoverable: the retriever falls back to an exact scan
	// and never surfaces this to callers.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrStaleComposition indicates feedback referenced a superseded
	// composition id. The caller must re-fetch the current composition.
	ErrStaleComposition = errors.New("stale composition id")

	// ErrConcurrentModification indicates the optimistic version check
	// failed after the bounded retry budget was exhausted.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrNoCourseSlots indicates the intent defines no composition
	// courses (composer invoked for a non-composing intent).
	ErrNoCourseSlots = errors.New("intent defines no course slots")

	// ErrRebuildInProgress indicates an index rebuild job is already
	// running.
	ErrRebuildInProgress = errors.New("index rebuild already in progress")

	// ErrJobNotFound indicates an unknown rebuild job id.
	ErrJobNotFound = errors.New("rebuild job not found")
)
