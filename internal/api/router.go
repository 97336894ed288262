// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/platefinder/internal/config"
	"github.com/tomtom215/platefinder/internal/middleware"
)

// NewRouter builds the HTTP routing tree.
//
// Middleware order matters: real IP extraction must precede rate
// limiting (which keys by IP), and the request ID must exist before any
// handler logs.
func NewRouter(cfg config.ServerConfig, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Compression)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Prometheus)
		if !cfg.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Post("/next", h.Next)
				r.Post("/feedback", h.Feedback)
				r.Post("/composition", h.CompositionFeedback)
				r.Post("/complete", h.Complete)
				r.Post("/abandon", h.Abandon)
			})
		})

		r.Route("/profiles/{user_id}", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Post("/reset", h.ResetProfile)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/index/rebuild", h.StartRebuild)
			r.Get("/index/rebuild/{job_id}", h.RebuildStatus)
			r.Post("/items", h.UpsertItems)
			r.Delete("/items/{id}", h.DeleteItem)
		})
	})

	return r
}
