// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/platefinder/internal/recommend"
)

func testEvent() recommend.FeedbackEvent {
	return recommend.FeedbackEvent{
		SessionID: "s1",
		UserID:    "u1",
		ItemID:    "i1",
		Type:      recommend.FeedbackLike,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus := New(zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := testEvent()
	if err := bus.PublishFeedback(ctx, want); err != nil {
		t.Fatalf("PublishFeedback() error = %v", err)
	}

	select {
	case msg := <-messages:
		got, err := DecodeFeedback(msg)
		if err != nil {
			t.Fatalf("DecodeFeedback() error = %v", err)
		}
		msg.Ack()

		if got.SessionID != want.SessionID || got.ItemID != want.ItemID || got.Type != want.Type {
			t.Errorf("decoded event = %+v, want %+v", got, want)
		}
		if msg.Metadata.Get("session_id") != "s1" || msg.Metadata.Get("type") != "like" {
			t.Errorf("metadata = %v, want session_id and type set", msg.Metadata)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for published event")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := New(zerolog.Nop())
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := bus.PublishFeedback(context.Background(), testEvent()); err == nil {
		t.Error("PublishFeedback() after close must fail")
	}
}

func TestCloseIdempotent(t *testing.T) {
	bus := New(zerolog.Nop())
	if err := bus.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDecodeFeedbackMalformed(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	if _, err := DecodeFeedback(msg); err == nil {
		t.Error("DecodeFeedback() of garbage must fail")
	}
}

func TestFeedbackLogCounts(t *testing.T) {
	bus := New(zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	log := NewFeedbackLog(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- log.Run(ctx) }()

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := bus.PublishFeedback(ctx, testEvent()); err != nil {
			t.Fatalf("PublishFeedback() error = %v", err)
		}
	}

	// One malformed message straight onto the topic.
	raw := message.NewMessage(watermill.NewUUID(), []byte("{broken"))
	if err := bus.pubsub.Publish(TopicFeedback, raw); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for log.Processed() < 3 || log.Malformed() < 1 {
		select {
		case <-deadline:
			t.Fatalf("counts = (%d processed, %d malformed), want (3, 1)",
				log.Processed(), log.Malformed())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestFeedbackLogStopsOnBusClose(t *testing.T) {
	bus := New(zerolog.Nop())
	log := NewFeedbackLog(bus, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- log.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil after bus close", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after bus close")
	}
}
