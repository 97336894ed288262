// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/platefinder/internal/recommend"
)

// mapError translates recommendation core sentinels into HTTP status
// codes and machine-readable error codes. Unknown errors become 500
// with a generic message so internals never leak to clients.
func mapError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, recommend.ErrSessionNotFound),
		errors.Is(err, recommend.ErrProfileNotFound),
		errors.Is(err, recommend.ErrItemNotFound),
		errors.Is(err, recommend.ErrJobNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, recommend.ErrSessionTerminal):
		return http.StatusConflict, "SESSION_TERMINAL", err.Error()
	case errors.Is(err, recommend.ErrStaleComposition):
		return http.StatusConflict, "STALE_COMPOSITION", err.Error()
	case errors.Is(err, recommend.ErrConcurrentModification):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, recommend.ErrRebuildInProgress):
		return http.StatusConflict, "CONFLICT", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// writeMappedError logs server-side failures and writes the mapped
// error envelope.
func writeMappedError(w http.ResponseWriter, r *http.Request, err error, h *Handler) {
	status, code, message := mapError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondError(w, r, status, code, message, nil)
}
