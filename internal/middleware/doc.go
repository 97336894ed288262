// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package middleware provides chi-compatible HTTP middleware: gzip
// compression, request ID propagation for tracing, and Prometheus
// request instrumentation.
package middleware
