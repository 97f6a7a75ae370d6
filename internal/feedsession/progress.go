// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package feedsession

// Feedback thresholds. A video counts as started after one second of
// playback and as finished after 67% of its duration. For durations under
// roughly 1.5s the finished threshold is reachable before the started one;
// the latches are independent by design, matching the literal thresholds.
const (
	StartedThresholdSeconds = 1.0
	FinishedFraction        = 0.67
)

// Tracker is the view-progress tracker for one playback session of one
// video. It observes (elapsed, duration) samples and emits each of the two
// feedback events at most once.
//
// A session is scoped to one continuous activation of one video; Session
// creates a fresh Tracker on every activation, so a replay of the same video
// re-fires both events.
//
// Tracker is not safe for concurrent use; Session serializes all access on a
// single goroutine.
type Tracker struct {
	videoID      string
	sink         FeedbackSink
	startedSent  bool
	finishedSent bool
}

// NewTracker creates a progress tracker for one session of the given video.
func NewTracker(videoID string, sink FeedbackSink) *Tracker {
	return &Tracker{videoID: videoID, sink: sink}
}

// VideoID returns the video this session tracks.
func (t *Tracker) VideoID() string {
	return t.videoID
}

// Observe processes one playback-progress sample. Samples arrive on every
// native time-update tick; duration may be zero until media metadata loads.
// While the duration is unknown neither event can fire. A media file whose
// duration never materializes produces no feedback at all, which is accepted
// behavior, not an error.
func (t *Tracker) Observe(elapsed, duration float64) {
	if duration <= 0 {
		return
	}
	if !t.startedSent && elapsed >= StartedThresholdSeconds {
		t.startedSent = true
		t.sink.EmitFeedback(t.videoID, FeedbackStarted)
	}
	if !t.finishedSent && elapsed >= duration*FinishedFraction {
		t.finishedSent = true
		t.sink.EmitFeedback(t.videoID, FeedbackFinished)
	}
}

// Started reports whether the started event has been emitted this session.
func (t *Tracker) Started() bool {
	return t.startedSent
}

// Finished reports whether the finished event has been emitted this session.
func (t *Tracker) Finished() bool {
	return t.finishedSent
}
