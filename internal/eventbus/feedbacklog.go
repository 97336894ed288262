// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package eventbus

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// FeedbackLog is the analytics subscriber: it drains the feedback topic
// and writes one structured log line per event. Malformed messages are
// acked and counted rather than blocking the stream.
type FeedbackLog struct {
	bus    *Bus
	logger zerolog.Logger

	processed atomic.Uint64
	malformed atomic.Uint64
}

// NewFeedbackLog creates the feedback log subscriber.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFeedbackLog(bus *Bus, logger zerolog.Logger) *FeedbackLog {
	return &FeedbackLog{
		bus:    bus,
		logger: logger.With().Str("component", "feedback_log").Logger(),
	}
}

// Run consumes feedback events until the context is cancelled or the
// bus closes.
func (f *FeedbackLog) Run(ctx context.Context) error {
	messages, err := f.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			event, err := DecodeFeedback(msg)
			if err != nil {
				f.malformed.Add(1)
				f.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("malformed feedback event")
				msg.Ack()
				continue
			}

			f.processed.Add(1)
			f.logger.Info().
				Str("session_id", event.SessionID).
				Str("user_id", event.UserID).
				Str("item_id", event.ItemID).
				Str("type", string(event.Type)).
				Int("rating", event.Rating).
				Str("course", string(event.Course)).
				Time("at", event.Timestamp).
				Msg("feedback")
			msg.Ack()
		}
	}
}

// Processed returns the number of events logged so far.
func (f *FeedbackLog) Processed() uint64 {
	return f.processed.Load()
}

// Malformed returns the number of undecodable messages seen so far.
func (f *FeedbackLog) Malformed() uint64 {
	return f.malformed.Load()
}
