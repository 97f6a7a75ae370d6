// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package feedsession

import (
	"context"
	"fmt"
)

// Item is one video in the feed window. Items are immutable after insertion;
// the window only ever appends.
type Item struct {
	// ID is the opaque video identifier. Uniqueness within the window is
	// enforced by the window itself.
	ID string `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// URL is the media URL of the video.
	URL string `json:"url"`

	// CoverURL is the poster image shown before playback starts.
	CoverURL string `json:"cover_url,omitempty"`
}

// Page is one page of the paginated feed source. An empty NextCursor signals
// that no further pages exist.
type Page struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Fetcher fetches one page of the feed. An empty cursor requests the first
// page. Implementations are typically backed by the recommendation service.
type Fetcher interface {
	FetchPage(ctx context.Context, cursor string, limit int) (Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, cursor string, limit int) (Page, error)

// FetchPage implements Fetcher.
func (f FetcherFunc) FetchPage(ctx context.Context, cursor string, limit int) (Page, error) {
	return f(ctx, cursor, limit)
}

// FeedbackKind identifies an engagement feedback event.
type FeedbackKind string

const (
	// FeedbackStarted is emitted once per session when playback has run for
	// at least one second.
	FeedbackStarted FeedbackKind = "STARTED"

	// FeedbackFinished is emitted once per session when playback has reached
	// 67% of the video duration.
	FeedbackFinished FeedbackKind = "FINISHED"
)

// FeedbackSink receives engagement feedback. Emission is fire-and-forget:
// implementations must not block the caller and have no way to report
// failure back into the session.
type FeedbackSink interface {
	EmitFeedback(videoID string, kind FeedbackKind)
}

// FeedbackSinkFunc adapts a function to the FeedbackSink interface.
type FeedbackSinkFunc func(videoID string, kind FeedbackKind)

// EmitFeedback implements FeedbackSink.
func (f FeedbackSinkFunc) EmitFeedback(videoID string, kind FeedbackKind) {
	f(videoID, kind)
}

// Surface is the playback capability of one materialized video, the
// equivalent of a native media element.
type Surface interface {
	// Play starts playback. It may fail (autoplay restriction, decode
	// error); callers treat failure as non-fatal.
	Play() error

	// Pause stops playback immediately.
	Pause()

	// Seek moves the playback position, in seconds.
	Seek(seconds float64)

	// SetMuted applies the shared mute flag without affecting position.
	SetMuted(muted bool)
}

// SurfaceProvider materializes playback surfaces for items entering the
// mounted or active state and tears them down when items unmount.
type SurfaceProvider interface {
	// Acquire returns a Surface for the item, creating it if necessary.
	// Acquire is idempotent per item ID while the surface is held.
	Acquire(item Item) (Surface, error)

	// Release tears down the surface for the given item ID. Releasing an
	// unknown ID is a no-op.
	Release(id string)
}

// State is the lifecycle state of an item in the window.
type State int

const (
	// StateUnmounted items are detached from rendering entirely.
	StateUnmounted State = iota

	// StateMounted items are rendered but not playing and not observed for
	// feedback.
	StateMounted

	// StateActive is the single item currently playing. At most one item is
	// active at a time.
	StateActive
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateMounted:
		return "mounted"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so snapshots serialize with
// readable state names.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, the inverse of
// MarshalText, so serialized snapshots decode back into State values.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unmounted":
		*s = StateUnmounted
	case "mounted":
		*s = StateMounted
	case "active":
		*s = StateActive
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// ItemState pairs an item with its derived lifecycle state.
type ItemState struct {
	Item  Item  `json:"item"`
	State State `json:"state"`
}

// Snapshot is the derived view of the window after a transition.
type Snapshot struct {
	Items    []ItemState `json:"items"`
	ActiveID string      `json:"active_id,omitempty"`

	// Exhausted reports that the feed source has no further pages.
	Exhausted bool `json:"exhausted"`
}

// Intersection reports a visibility change for one item: whether the item
// currently covers at least the visibility threshold of the viewport. The
// identifier is carried explicitly with the observation, never parsed out of
// a rendered-node name.
type Intersection struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// Listener receives window snapshots after every processed transition.
type Listener interface {
	OnSnapshot(snap Snapshot)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(snap Snapshot)

// OnSnapshot implements Listener.
func (f ListenerFunc) OnSnapshot(snap Snapshot) {
	f(snap)
}
