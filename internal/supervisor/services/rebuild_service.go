// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/platefinder/internal/recommend"
)

// RebuildService runs scheduled vector index rebuilds. A failed run is
// logged and retried at the next tick; a concurrent manual rebuild via
// the admin API simply wins the slot.
type RebuildService struct {
	rebuilder *recommend.Rebuilder
	interval  time.Duration
	onStartup bool
	logger    zerolog.Logger
	name      string
}

// NewRebuildService creates the rebuild scheduler service wrapper.
func NewRebuildService(rebuilder *recommend.Rebuilder, cfg recommend.RebuildConfig, logger zerolog.Logger) *RebuildService {
	return &RebuildService{
		rebuilder: rebuilder,
		interval:  cfg.Interval,
		onStartup: cfg.OnStartup,
		logger:    logger.With().Str("component", "rebuild-service").Logger(),
		name:      "index-rebuild",
	}
}

// Serve implements suture.Service.
func (s *RebuildService) Serve(ctx context.Context) error {
	if s.onStartup {
		s.runOnce(ctx)
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RebuildService) runOnce(ctx context.Context) {
	err := s.rebuilder.RunOnce(ctx)
	switch {
	case err == nil:
		s.logger.Info().Msg("Scheduled index rebuild completed")
	case errors.Is(err, recommend.ErrRebuildInProgress):
		s.logger.Debug().Msg("Skipping scheduled rebuild, another rebuild is running")
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Error().Err(err).Msg("Scheduled index rebuild failed")
	}
}

// String implements fmt.Stringer for suture log messages.
func (s *RebuildService) String() string {
	return s.name
}
