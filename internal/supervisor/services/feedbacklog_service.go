// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package services

import (
	"context"
	"errors"

	"github.com/tomtom215/platefinder/internal/eventbus"
)

// FeedbackLogService runs the feedback event consumer under supervision.
type FeedbackLogService struct {
	log  *eventbus.FeedbackLog
	name string
}

// NewFeedbackLogService creates the feedback consumer service wrapper.
func NewFeedbackLogService(log *eventbus.FeedbackLog) *FeedbackLogService {
	return &FeedbackLogService{
		log:  log,
		name: "feedback-log",
	}
}

// Serve implements suture.Service. Context cancellation is a normal
// stop, not a failure to restart.
func (s *FeedbackLogService) Serve(ctx context.Context) error {
	err := s.log.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return err
}

// String implements fmt.Stringer for suture log messages.
func (s *FeedbackLogService) String() string {
	return s.name
}
