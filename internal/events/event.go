// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package events carries view feedback from feed sessions to the
// recommender over a message bus.
//
// Sessions publish FeedbackEvent messages; a Watermill router consumes
// them, records view history and forwards the feedback to the recommender.
// The bus is either NATS JetStream (multi-node, durable) or an in-process
// Go channel (single node). Failed messages are retried with backoff and
// parked on a poison topic when retries run out.
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current feedback event schema version.
const SchemaVersion = 1

// Feedback kinds carried on the bus. Values match the view tracker's
// vocabulary.
const (
	KindStarted  = "STARTED"
	KindFinished = "FINISHED"
)

// FeedbackEvent is one view-progress signal for a user and video.
type FeedbackEvent struct {
	SchemaVersion int    `json:"schema_version,omitempty"`
	EventID       string `json:"event_id"`

	UserID  string `json:"user_id"`
	VideoID string `json:"video_id"`

	// Kind is KindStarted or KindFinished.
	Kind string `json:"kind"`

	// SessionID identifies the feed session that produced the event.
	// Together with VideoID and Kind it forms the deduplication key: the
	// tracker latches per session, so one session emits each kind at most
	// once per video.
	SessionID string `json:"session_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewFeedbackEvent creates an event with a fresh ID and timestamp.
func NewFeedbackEvent(userID, videoID, kind, sessionID string) *FeedbackEvent {
	return &FeedbackEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		UserID:        userID,
		VideoID:       videoID,
		Kind:          kind,
		SessionID:     sessionID,
		OccurredAt:    time.Now().UTC(),
	}
}

// Validate checks required fields.
func (e *FeedbackEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("feedback event: missing event_id")
	}
	if e.UserID == "" {
		return fmt.Errorf("feedback event: missing user_id")
	}
	if e.VideoID == "" {
		return fmt.Errorf("feedback event: missing video_id")
	}
	switch e.Kind {
	case KindStarted, KindFinished:
	default:
		return fmt.Errorf("feedback event: unknown kind %q", e.Kind)
	}
	return nil
}

// DedupID returns the stable deduplication key for the event. Republishing
// the same latch transition (after a reconnect, say) maps to the same ID so
// JetStream drops the duplicate.
func (e *FeedbackEvent) DedupID() string {
	if e.SessionID == "" {
		return e.EventID
	}
	return e.SessionID + ":" + e.VideoID + ":" + e.Kind
}

// Marshal serializes the event after validating it.
func (e *FeedbackEvent) Marshal() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal feedback event: %w", err)
	}
	return data, nil
}

// UnmarshalFeedbackEvent parses an event from its wire form.
func UnmarshalFeedbackEvent(data []byte) (*FeedbackEvent, error) {
	var e FeedbackEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal feedback event: %w", err)
	}
	if e.SchemaVersion == 0 {
		e.SchemaVersion = SchemaVersion
	}
	return &e, nil
}
