// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package feedsession implements the endless-feed session engine: the state
// machines that decide which videos in a scrolling feed are materialized,
// which single video is playing, and when engagement feedback is emitted.
//
// The package is deliberately environment-agnostic. It never touches a
// rendering surface or a network directly; everything external is injected
// through small capability interfaces so the state machines are testable in
// isolation:
//
//   - Fetcher: paginated feed source (one page of items + opaque cursor)
//   - Surface: playback control for one materialized video
//   - SurfaceProvider: materializes and tears down Surfaces per lifecycle state
//   - FeedbackSink: fire-and-forget engagement events (started/finished)
//   - Listener: receives derived window snapshots after each transition
//
// # Components
//
// Window maintains the ordered, deduplicated item sequence, assigns each item
// a lifecycle state (unmounted, mounted, active) derived from the currently
// active item's page, and decides when to prefetch the next page.
//
// Orchestrator guarantees at most one Surface is playing. Activation seeks to
// zero and starts playback; playback start failures are logged and swallowed
// (autoplay is best effort). A shared mute flag applies to every surface.
//
// Tracker watches playback progress of the active video and emits exactly two
// feedback events per session, each at most once: started when at least one
// second has elapsed and the duration is known, finished when 67% of the
// duration has elapsed. If the duration never becomes known, neither fires.
//
// Session wires the three together behind a single-goroutine event loop, so
// no component needs internal locking: intersection batches, progress ticks
// and page-fetch completions are all serialized, mirroring a UI callback
// queue. A new Tracker session begins on every activation, including a replay
// of the same video.
package feedsession
