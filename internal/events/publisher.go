// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/feedsession"
	"github.com/vireo-app/vireo/internal/metrics"
)

// FeedbackPublisher publishes feedback events to the bus.
type FeedbackPublisher struct {
	publisher message.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewFeedbackPublisher creates a publisher for the given topic.
func NewFeedbackPublisher(pub message.Publisher, topic string, logger zerolog.Logger) *FeedbackPublisher {
	return &FeedbackPublisher{
		publisher: pub,
		topic:     topic,
		logger:    logger.With().Str("component", "feedback_publisher").Logger(),
	}
}

// Publish validates and publishes one event. The message UUID is the
// event's deduplication key, and it doubles as the Nats-Msg-Id so the
// JetStream duplicate window drops replays.
func (p *FeedbackPublisher) Publish(_ context.Context, event *FeedbackEvent) error {
	data, err := event.Marshal()
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.DedupID(), data)
	msg.Metadata.Set(natsgo.MsgIdHdr, event.DedupID())
	msg.Metadata.Set("kind", event.Kind)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish feedback event: %w", err)
	}
	metrics.FeedbackPublished.WithLabelValues(event.Kind).Inc()
	return nil
}

// SessionSink adapts the publisher into a per-session feedback sink for the
// feed session core. Publish failures are logged and swallowed: losing one
// recommendation signal must not disturb playback.
//
// Anonymous sessions get a no-op sink: without a user there is no history
// row or recommender signal to record, and publishing would only fail
// validation on every latch.
func (p *FeedbackPublisher) SessionSink(userID, sessionID string) feedsession.FeedbackSink {
	if userID == "" {
		return feedsession.FeedbackSinkFunc(func(string, feedsession.FeedbackKind) {})
	}
	return feedsession.FeedbackSinkFunc(func(videoID string, kind feedsession.FeedbackKind) {
		event := NewFeedbackEvent(userID, videoID, string(kind), sessionID)
		if err := p.Publish(context.Background(), event); err != nil {
			p.logger.Warn().Err(err).
				Str("video_id", videoID).
				Str("kind", string(kind)).
				Msg("dropping feedback event")
		}
	})
}
