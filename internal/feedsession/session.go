// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package feedsession

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFetchTimeout bounds a single page fetch.
const DefaultFetchTimeout = 10 * time.Second

// Config configures a feed session.
type Config struct {
	// PageSize is the feed page size. Default: DefaultPageSize.
	PageSize int

	// Seed, when non-nil, is guaranteed present at index 0 (deep link).
	Seed *Item

	// Fetcher supplies feed pages. Required.
	Fetcher Fetcher

	// Surfaces materializes playback surfaces. Required.
	Surfaces SurfaceProvider

	// Sink receives engagement feedback. Required.
	Sink FeedbackSink

	// Listener receives window snapshots. Optional.
	Listener Listener

	// Logger is the session logger. Optional.
	Logger zerolog.Logger

	// FetchTimeout bounds a single page fetch. Default: DefaultFetchTimeout.
	FetchTimeout time.Duration
}

// event is the tagged union delivered into the session loop.
type event struct {
	batch    []Intersection
	progress *progressSample
	mute     *bool
}

type progressSample struct {
	videoID  string
	elapsed  float64
	duration float64
}

type fetchResult struct {
	page Page
	err  error
}

// Session drives one user's endless feed. All state transitions (window
// merges, activation changes, progress samples) are serialized through a
// single event loop, mirroring the cooperative single-threaded model of a UI
// callback queue, so Window, Orchestrator and Tracker carry no locks.
//
// The only asynchronous operations are page fetches (fire-and-forget: the
// result merges into state when it arrives) and whatever the FeedbackSink
// does internally.
type Session struct {
	cfg     Config
	window  *Window
	orch    *Orchestrator
	tracker *Tracker
	logger  zerolog.Logger

	events    chan event
	fetchDone chan fetchResult
	closed    chan struct{}
}

// NewSession creates a feed session. Run must be called to process events.
func NewSession(cfg Config) *Session {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Session{
		cfg:       cfg,
		window:    NewWindow(WindowConfig{PageSize: cfg.PageSize, Seed: cfg.Seed}),
		orch:      NewOrchestrator(cfg.Logger),
		logger:    cfg.Logger,
		events:    make(chan event, 64),
		fetchDone: make(chan fetchResult, 1),
		closed:    make(chan struct{}),
	}
}

// Observe enqueues one intersection-event batch.
func (s *Session) Observe(batch []Intersection) {
	s.enqueue(event{batch: batch})
}

// Progress enqueues one playback-progress sample for the given video.
// Samples for videos that are no longer active are discarded by the loop.
func (s *Session) Progress(videoID string, elapsed, duration float64) {
	s.enqueue(event{progress: &progressSample{videoID: videoID, elapsed: elapsed, duration: duration}})
}

// SetMuted enqueues a change of the shared mute flag.
func (s *Session) SetMuted(muted bool) {
	s.enqueue(event{mute: &muted})
}

func (s *Session) enqueue(ev event) {
	select {
	case s.events <- ev:
	case <-s.closed:
	}
}

// Run processes events until ctx is canceled, then tears down all surfaces.
// It kicks off the initial page fetch before entering the loop.
func (s *Session) Run(ctx context.Context) {
	defer close(s.closed)
	defer s.dispose()

	if s.window.NeedsInitialFetch() {
		s.startFetch(ctx)
	}
	s.publish()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ctx, ev)
		case res := <-s.fetchDone:
			s.handleFetchResult(res)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev event) {
	switch {
	case ev.batch != nil:
		s.handleIntersections(ctx, ev.batch)
	case ev.progress != nil:
		s.handleProgress(*ev.progress)
	case ev.mute != nil:
		s.orch.SetMuted(*ev.mute)
	}
}

// handleIntersections applies one visibility batch: updates the active item,
// triggers prefetch when a visible item sits in the window tail, reconciles
// surfaces against the derived states, and publishes a snapshot.
func (s *Session) handleIntersections(ctx context.Context, batch []Intersection) {
	activeChanged, needFetch := s.window.Observe(batch)
	if needFetch {
		s.startFetch(ctx)
	}
	s.reconcile()
	if activeChanged {
		s.activate(s.window.ActiveID())
	}
	s.publish()
}

// handleProgress forwards a sample to the current tracker. Samples for a
// video that is no longer the active session are dropped, so a late tick can
// never fire feedback for a torn-down session.
func (s *Session) handleProgress(p progressSample) {
	if s.tracker == nil || s.tracker.VideoID() != p.videoID {
		return
	}
	if s.window.ActiveID() != p.videoID {
		return
	}
	s.tracker.Observe(p.elapsed, p.duration)
}

func (s *Session) handleFetchResult(res fetchResult) {
	if res.err != nil {
		// Cursor stays unchanged; the next qualifying intersection retries.
		s.window.FetchFailed()
		s.logger.Warn().Err(res.err).Msg("Feed page fetch failed")
		return
	}
	s.window.Merge(res.page)
	s.reconcile()
	s.publish()
}

// startFetch begins a page fetch unless one is already in flight or the
// source is exhausted.
func (s *Session) startFetch(ctx context.Context) {
	cursor, ok := s.window.BeginFetch()
	if !ok {
		return
	}
	go func() {
		fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
		page, err := s.cfg.Fetcher.FetchPage(fctx, cursor, s.window.PageSize())
		select {
		case s.fetchDone <- fetchResult{page: page, err: err}:
		case <-ctx.Done():
		}
	}()
}

// activate starts a new playback session for the given video: the previous
// surface is paused, the new one restarts from zero, and a fresh Tracker is
// created so the feedback latches reset, including for a replay of the same
// video identifier.
func (s *Session) activate(id string) {
	s.orch.Activate(id)
	s.tracker = NewTracker(id, s.cfg.Sink)
}

// reconcile aligns materialized surfaces with derived lifecycle states:
// mounted and active items hold a surface, unmounted items are torn down.
func (s *Session) reconcile() {
	for _, is := range s.window.Snapshot().Items {
		switch is.State {
		case StateUnmounted:
			if s.orch.Attached(is.Item.ID) {
				s.orch.Detach(is.Item.ID)
				s.cfg.Surfaces.Release(is.Item.ID)
			}
		case StateMounted, StateActive:
			if !s.orch.Attached(is.Item.ID) {
				surface, err := s.cfg.Surfaces.Acquire(is.Item)
				if err != nil {
					s.logger.Warn().Err(err).Str("video_id", is.Item.ID).Msg("Surface acquire failed")
					continue
				}
				s.orch.Attach(is.Item.ID, surface)
			}
		}
	}
}

// dispose tears down every surface and detaches the tracker so no pending
// tick can emit feedback after shutdown.
func (s *Session) dispose() {
	for _, item := range s.window.Items() {
		if s.orch.Attached(item.ID) {
			s.orch.Detach(item.ID)
			s.cfg.Surfaces.Release(item.ID)
		}
	}
	s.tracker = nil
}

func (s *Session) publish() {
	if s.cfg.Listener == nil {
		return
	}
	s.cfg.Listener.OnSnapshot(s.window.Snapshot())
}
