// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package eventbus carries feedback events between the recommendation
// engine and in-process subscribers over a Watermill channel Pub/Sub.
// Delivery is at-most-once within the process; the bus exists so
// analytics consumers never sit on the user-facing request path.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/platefinder/internal/recommend"
)

// TopicFeedback is the feedback event topic.
const TopicFeedback = "feedback.events"

// Bus is an in-process feedback event bus. It implements
// recommend.FeedbackPublisher.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates the event bus.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(logger zerolog.Logger) *Bus {
	busLogger := logger.With().Str("component", "eventbus").Logger()

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, newLoggerAdapter(busLogger))

	return &Bus{
		pubsub: pubsub,
		logger: busLogger,
	}
}

// PublishFeedback serializes and publishes one feedback event.
func (b *Bus) PublishFeedback(ctx context.Context, event recommend.FeedbackEvent) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feedback event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("session_id", event.SessionID)
	msg.Metadata.Set("user_id", event.UserID)
	msg.Metadata.Set("type", string(event.Type))

	return b.pubsub.Publish(TopicFeedback, msg)
}

// Subscribe returns the feedback event stream. Each call gets an
// independent subscription.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicFeedback)
}

// Close shuts the bus down. Idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// DecodeFeedback unmarshals a bus message back into a feedback event.
func DecodeFeedback(msg *message.Message) (recommend.FeedbackEvent, error) {
	var event recommend.FeedbackEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return recommend.FeedbackEvent{}, fmt.Errorf("unmarshal feedback event: %w", err)
	}
	return event, nil
}
