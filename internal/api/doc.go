// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package api exposes the recommendation engine over HTTP.
//
// All endpoints live under /api/v1 and return the standard response
// envelope defined in internal/models. Session endpoints drive the
// recommendation loop (start, next, feedback, complete), profile
// endpoints expose taste profiles, and admin endpoints manage the
// vector index. Rate limiting, CORS, request IDs, and Prometheus
// instrumentation are applied as chi middleware.
package api
