// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package main is the entry point for the Platefinder server.
//
// Platefinder is a self-hosted personalized menu recommendation engine.
// It retrieves candidate dishes through an approximate vector index,
// reranks them against a Bayesian taste profile, diversifies the result
// with MMR, and composes multi-course meals under budget and harmony
// constraints. Taste profiles learn online from session feedback.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load via Koanf v2 (defaults, YAML, env)
//  2. Store: BadgerDB (or in-memory for development)
//  3. Vector index: restore the persisted snapshot if present
//  4. Event bus: in-process Watermill Pub/Sub for feedback events
//  5. Recommendation engine: retriever, reranker, diversity, composer,
//     learner, session engine
//  6. Supervisor tree: index rebuild scheduler, feedback consumer, and
//     HTTP server under suture supervision
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables (PLATEFINDER_*), an optional
// config.yaml, and built-in defaults.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests within the
// configured timeout, and closes the store and event bus.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/platefinder/internal/api"
	"github.com/tomtom215/platefinder/internal/config"
	"github.com/tomtom215/platefinder/internal/eventbus"
	"github.com/tomtom215/platefinder/internal/logging"
	"github.com/tomtom215/platefinder/internal/metrics"
	"github.com/tomtom215/platefinder/internal/recommend"
	"github.com/tomtom215/platefinder/internal/recommend/vectorindex"
	"github.com/tomtom215/platefinder/internal/store"
	"github.com/tomtom215/platefinder/internal/supervisor"
	"github.com/tomtom215/platefinder/internal/supervisor/services"
)

// dataStore is the storage surface the engine needs. Satisfied by both
// store.BadgerStore and store.MemoryStore.
type dataStore interface {
	recommend.SessionStore
	recommend.ProfileStore
	recommend.ItemSource
	recommend.CatalogSource
	api.ItemStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available; the default logger applies.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Bool("in_memory_store", cfg.Store.InMemory).
		Msg("Starting Platefinder")

	var st dataStore
	if cfg.Store.InMemory {
		logging.Warn().Msg("Using in-memory store, nothing survives a restart")
		st = store.NewMemory()
	} else {
		badgerStore, err := store.Open(cfg.Store.Path, logger)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open store")
		}
		defer func() {
			if err := badgerStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing store")
			}
		}()
		st = badgerStore
		logging.Info().Str("path", cfg.Store.Path).Msg("Store opened")
	}

	// A missing snapshot is normal on first start; queries fall back to
	// the exact scan until the first rebuild completes.
	var idx *vectorindex.Index
	if cfg.Index.LoadOnStartup && cfg.Index.Path != "" {
		loaded, err := vectorindex.Load(cfg.Index.Path)
		switch {
		case err == nil:
			idx = loaded
			logging.Info().Int("items", loaded.Size()).Str("path", cfg.Index.Path).Msg("Vector index snapshot restored")
		case errors.Is(err, os.ErrNotExist):
			logging.Info().Str("path", cfg.Index.Path).Msg("No vector index snapshot found")
		default:
			logging.Warn().Err(err).Str("path", cfg.Index.Path).Msg("Failed to restore vector index snapshot")
		}
	}
	handle := vectorindex.NewHandle(idx)

	bus := eventbus.New(logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	rcfg := cfg.Recommend
	engine := recommend.NewEngine(rcfg, recommend.EngineDeps{
		Sessions:  st,
		Profiles:  st,
		Items:     st,
		Retriever: recommend.NewRetriever(rcfg.Retrieval, rcfg.Limits, st, handle, logger),
		Reranker:  recommend.NewReranker(rcfg.Scoring, nil, logger),
		Diversity: recommend.NewDiversityReranker(rcfg.Diversity),
		Composer:  recommend.NewComposer(rcfg.Composer, logger),
		Learner:   recommend.NewLearner(rcfg.Learner, 0, logger),
		Publisher: bus,
		Metrics:   metrics.NewRecorder(),
	}, logger)

	rebuilder := recommend.NewRebuilder(rcfg.Rebuild, st, handle, cfg.Index.Path, logger)
	rebuilder.SetRecorder(metrics.RecordRebuild)

	handler := api.NewHandler(engine, rebuilder, st, logger)
	router := api.NewRouter(cfg.Server, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// zerolog bridged to slog for sutureslog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddIndexService(services.NewRebuildService(rebuilder, rcfg.Rebuild, logger))
	tree.AddMessagingService(services.NewFeedbackLogService(eventbus.NewFeedbackLog(bus, logger)))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Platefinder stopped gracefully")
}
