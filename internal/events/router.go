// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/metrics"
	"github.com/vireo-app/vireo/internal/recommend"
)

// HistoryRecorder records that a user viewed a video. internal/database
// provides the production implementation.
type HistoryRecorder interface {
	RecordView(ctx context.Context, userID, videoID string, viewedAt time.Time) error
}

// RouterConfig holds the consumer router settings.
type RouterConfig struct {
	// Topic is the feedback subject the router consumes.
	Topic string

	// PoisonTopic receives messages that exhaust their retries.
	PoisonTopic string

	RetryCount    int
	RetryInterval time.Duration
	CloseTimeout  time.Duration
}

// NewRouter builds a Watermill router that consumes feedback events,
// records view history and forwards them to the recommender.
//
// Middleware order, outer to inner: recoverer (panic to error), poison
// queue (park after retries), retry (exponential backoff). Recommender
// outages surface as handler errors and ride the retry path; the poison
// topic is the terminal stop, watched by an operator rather than code.
func NewRouter(
	cfg RouterConfig,
	bus *Bus,
	recommender recommend.Recommender,
	histories HistoryRecorder,
	wmLogger watermill.LoggerAdapter,
	logger zerolog.Logger,
) (*message.Router, error) {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	poison, err := middleware.PoisonQueue(&poisonCountingPublisher{inner: bus.Publisher}, cfg.PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("create poison queue: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		poison,
		middleware.Retry{
			MaxRetries:      cfg.RetryCount,
			InitialInterval: cfg.RetryInterval,
			MaxInterval:     10 * cfg.RetryInterval,
			Multiplier:      2.0,
		}.Middleware,
	)

	handler := &feedbackHandler{
		recommender: recommender,
		histories:   histories,
		logger:      logger.With().Str("component", "feedback_handler").Logger(),
	}
	router.AddNoPublisherHandler("feedback_forwarder", cfg.Topic, bus.Subscriber, handler.Handle)

	return router, nil
}

// poisonCountingPublisher counts messages parked on the poison topic.
type poisonCountingPublisher struct {
	inner message.Publisher
}

func (p *poisonCountingPublisher) Publish(topic string, msgs ...*message.Message) error {
	if err := p.inner.Publish(topic, msgs...); err != nil {
		return err
	}
	metrics.FeedbackPoisoned.Add(float64(len(msgs)))
	return nil
}

func (p *poisonCountingPublisher) Close() error {
	// The underlying bus owns the connection.
	return nil
}

// feedbackHandler applies one feedback event.
type feedbackHandler struct {
	recommender recommend.Recommender
	histories   HistoryRecorder
	logger      zerolog.Logger
}

// Handle maps STARTED to a history upsert plus "read" feedback, and
// FINISHED to "readall" feedback. Malformed messages are dropped without
// retry; downstream failures return an error so the retry middleware can
// redeliver.
func (h *feedbackHandler) Handle(msg *message.Message) error {
	start := time.Now()
	defer func() {
		metrics.FeedbackProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	event, err := UnmarshalFeedbackEvent(msg.Payload)
	if err != nil {
		h.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed feedback event")
		return nil
	}
	if err := event.Validate(); err != nil {
		h.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping invalid feedback event")
		return nil
	}

	ctx := msg.Context()
	switch event.Kind {
	case KindStarted:
		if err := h.histories.RecordView(ctx, event.UserID, event.VideoID, event.OccurredAt); err != nil {
			return fmt.Errorf("record view history: %w", err)
		}
		if err := h.recommender.InsertFeedback(ctx, event.UserID, event.VideoID, recommend.FeedbackRead); err != nil {
			return fmt.Errorf("forward read feedback: %w", err)
		}
	case KindFinished:
		if err := h.recommender.InsertFeedback(ctx, event.UserID, event.VideoID, recommend.FeedbackReadAll); err != nil {
			return fmt.Errorf("forward readall feedback: %w", err)
		}
	}

	metrics.FeedbackForwarded.Inc()
	h.logger.Debug().
		Str("user_id", event.UserID).
		Str("video_id", event.VideoID).
		Str("kind", event.Kind).
		Msg("feedback forwarded")
	return nil
}
