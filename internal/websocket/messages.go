// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package websocket

import "github.com/vireo-app/vireo/internal/feedsession"

// Client-to-server message types.
const (
	MessageTypeVisibility = "visibility"
	MessageTypeProgress   = "progress"
	MessageTypeMute       = "mute"
)

// Server-to-client message types.
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeCommand  = "command"
)

// Playback command actions.
const (
	ActionPlay  = "play"
	ActionPause = "pause"
	ActionSeek  = "seek"
	ActionMute  = "mute"
)

// ClientMessage is the envelope for everything a client sends. Type
// selects which of the optional fields are meaningful.
type ClientMessage struct {
	Type string `json:"type"`

	// Batch carries visibility changes (type "visibility").
	Batch []feedsession.Intersection `json:"batch,omitempty"`

	// VideoID, Elapsed, and Duration carry a progress sample
	// (type "progress"). Times are in seconds.
	VideoID  string  `json:"video_id,omitempty"`
	Elapsed  float64 `json:"elapsed,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	// Muted carries the shared mute toggle (type "mute").
	Muted bool `json:"muted,omitempty"`
}

// ServerMessage is the envelope for everything the server sends.
type ServerMessage struct {
	Type string `json:"type"`

	// Snapshot is the window state after a transition (type "snapshot").
	Snapshot *feedsession.Snapshot `json:"snapshot,omitempty"`

	// Command targets one video's playback surface (type "command").
	VideoID string  `json:"video_id,omitempty"`
	Action  string  `json:"action,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
	Muted   bool    `json:"muted,omitempty"`
}
