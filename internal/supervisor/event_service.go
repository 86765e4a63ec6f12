// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package supervisor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/events"
	"github.com/kisanlabs/agroadvisor/internal/metrics"
)

// EventLogService consumes engine lifecycle events from the bus, logs
// them, and keeps the model gauges current.
type EventLogService struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventLogService builds the subscriber around the shared bus.
func NewEventLogService(bus *events.Bus, log zerolog.Logger) *EventLogService {
	return &EventLogService{
		bus: bus,
		log: log.With().Str("component", "event_log").Logger(),
	}
}

// Serve implements suture.Service. It runs until ctx is cancelled or a
// subscription fails.
func (s *EventLogService) Serve(ctx context.Context) error {
	feedback, err := s.bus.Subscribe(ctx, events.TopicFeedbackRecorded)
	if err != nil {
		return err
	}
	retrains, err := s.bus.Subscribe(ctx, events.TopicModelRetrained)
	if err != nil {
		return err
	}

	for {
		select {
		case msg, ok := <-feedback:
			if !ok {
				return ctx.Err()
			}
			entry, err := events.DecodePayload[advisor.FeedbackEntry](msg)
			if err != nil {
				s.log.Warn().Err(err).Str("msg_id", msg.UUID).Msg("bad feedback payload")
				msg.Ack()
				continue
			}
			s.log.Info().
				Str("feedback_id", entry.ID).
				Str("user_id", entry.UserID).
				Str("prediction_type", string(entry.PredictionType)).
				Int("rating", entry.Rating).
				Msg("feedback recorded")
			msg.Ack()

		case msg, ok := <-retrains:
			if !ok {
				return ctx.Err()
			}
			ev, err := events.DecodePayload[advisor.RetrainEvent](msg)
			if err != nil {
				s.log.Warn().Err(err).Str("msg_id", msg.UUID).Msg("bad retrain payload")
				msg.Ack()
				continue
			}
			s.log.Info().
				Int("version", ev.Version).
				Int("records", ev.Records).
				Str("trigger", ev.Trigger).
				Dur("duration", ev.Duration).
				Msg("models retrained")
			metrics.SetModelVersion(ev.Version)
			metrics.SetTrainingRows(ev.Records)
			msg.Ack()

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *EventLogService) String() string { return "event-log" }
