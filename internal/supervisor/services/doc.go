// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package services wraps Platefinder's long-running components as
// suture.Service implementations: the HTTP server, the feedback event
// consumer, and the scheduled index rebuilder.
package services
