// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package events provides the in-process event bus that carries feedback
// and retraining notifications between the advisor core and subscribers.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/metrics"
)

// Topics published by the advisor service.
const (
	TopicFeedbackRecorded = "feedback.recorded"
	TopicModelRetrained   = "model.retrained"
)

// Bus is an in-process publish/subscribe bus backed by Watermill's
// gochannel transport. Publishing is non-blocking for the advisor: if no
// subscriber is attached, messages are dropped by the transport.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus with a bounded per-subscriber buffer.
func NewBus(log zerolog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, newWatermillLogger(log))

	return &Bus{pubsub: pubsub, log: log}
}

// FeedbackRecorded emits a feedback.recorded event.
func (b *Bus) FeedbackRecorded(ctx context.Context, entry advisor.FeedbackEntry) error {
	msg, err := encodeMessage(entry)
	if err != nil {
		return fmt.Errorf("encode feedback event: %w", err)
	}
	msg.Metadata.Set("user_id", entry.UserID)
	msg.Metadata.Set("prediction_type", string(entry.PredictionType))

	return b.publish(TopicFeedbackRecorded, msg)
}

// ModelRetrained emits a model.retrained event.
func (b *Bus) ModelRetrained(ctx context.Context, ev advisor.RetrainEvent) error {
	msg, err := encodeMessage(ev)
	if err != nil {
		return fmt.Errorf("encode retrain event: %w", err)
	}
	msg.Metadata.Set("version", fmt.Sprintf("%d", ev.Version))

	return b.publish(TopicModelRetrained, msg)
}

// Subscribe returns a channel of raw messages for the given topic.
// Callers must Ack or Nack every message they receive.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the bus down and terminates all subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

func (b *Bus) publish(topic string, msg *message.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventPublished(topic)
	return nil
}

func encodeMessage(payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return message.NewMessage(uuid.NewString(), data), nil
}

// DecodePayload unmarshals a message body into the given event type.
func DecodePayload[T any](msg *message.Message) (T, error) {
	var out T
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", msg.UUID, err)
	}
	return out, nil
}

var _ advisor.EventSink = (*Bus)(nil)

// watermillLogger adapts zerolog to Watermill's LoggerAdapter interface.
type watermillLogger struct {
	log zerolog.Logger
}

func newWatermillLogger(log zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log.With().Str("component", "events").Logger()}
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.event(w.log.Error().Err(err), fields).Msg(msg)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.event(w.log.Debug(), fields).Msg(msg)
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.event(w.log.Debug(), fields).Msg(msg)
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.event(w.log.Trace(), fields).Msg(msg)
}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := w.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &watermillLogger{log: ctx.Logger()}
}

func (w *watermillLogger) event(ev *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}
