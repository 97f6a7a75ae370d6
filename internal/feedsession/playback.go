// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package feedsession

import "github.com/rs/zerolog"

// Orchestrator ensures at most one playback surface is running at a time.
//
// Orchestrator is not safe for concurrent use; Session serializes all access
// on a single goroutine.
type Orchestrator struct {
	surfaces map[string]Surface
	activeID string
	muted    bool
	logger   zerolog.Logger
}

// NewOrchestrator creates a playback orchestrator.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewOrchestrator(logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		surfaces: make(map[string]Surface),
		logger:   logger,
	}
}

// Attach registers the surface of a mounted item and applies the shared mute
// flag to it. Attaching an already-attached ID replaces the surface.
func (o *Orchestrator) Attach(id string, s Surface) {
	o.surfaces[id] = s
	s.SetMuted(o.muted)
}

// Detach removes a surface, pausing it first if it was the active one.
func (o *Orchestrator) Detach(id string) {
	s, ok := o.surfaces[id]
	if !ok {
		return
	}
	if id == o.activeID {
		s.Pause()
		o.activeID = ""
	}
	delete(o.surfaces, id)
}

// Attached reports whether a surface is registered for the given ID.
func (o *Orchestrator) Attached(id string) bool {
	_, ok := o.surfaces[id]
	return ok
}

// ActiveID returns the ID whose surface is currently playing, or empty.
func (o *Orchestrator) ActiveID() string {
	return o.activeID
}

// Activate makes the surface with the given ID the single playing one: the
// previous active surface is paused, the new one is reset to the start and
// started. Playback start failure is logged and swallowed; auto-play is a
// best-effort convenience, and the surface stays visibly paused on failure.
//
// Activating an ID without an attached surface only pauses the previous one.
func (o *Orchestrator) Activate(id string) {
	if prev, ok := o.surfaces[o.activeID]; ok && o.activeID != id {
		prev.Pause()
	}
	o.activeID = id

	s, ok := o.surfaces[id]
	if !ok {
		return
	}
	s.Seek(0)
	if err := s.Play(); err != nil {
		o.logger.Warn().Err(err).Str("video_id", id).Msg("Playback start rejected")
	}
}

// Deactivate pauses the active surface, if any.
func (o *Orchestrator) Deactivate() {
	if s, ok := o.surfaces[o.activeID]; ok {
		s.Pause()
	}
	o.activeID = ""
}

// Muted returns the shared mute flag.
func (o *Orchestrator) Muted() bool {
	return o.muted
}

// SetMuted updates the shared mute flag on every attached surface without
// affecting playback position.
func (o *Orchestrator) SetMuted(muted bool) {
	o.muted = muted
	for _, s := range o.surfaces {
		s.SetMuted(muted)
	}
}
