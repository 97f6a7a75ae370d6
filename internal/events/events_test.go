// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/vireo-app/vireo/internal/feedsession"
	"github.com/vireo-app/vireo/internal/logging"
	"github.com/vireo-app/vireo/internal/recommend"
)

type recordedFeedback struct {
	userID  string
	videoID string
	kind    recommend.FeedbackType
}

// fakeRecommender collects forwarded feedback, optionally failing the
// first n calls.
type fakeRecommender struct {
	mu       sync.Mutex
	inserted []recordedFeedback
	failures int
}

func (f *fakeRecommender) InsertFeedback(_ context.Context, userID, itemID string, kind recommend.FeedbackType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("recommender down")
	}
	f.inserted = append(f.inserted, recordedFeedback{userID, itemID, kind})
	return nil
}

func (f *fakeRecommender) feedback() []recordedFeedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedFeedback, len(f.inserted))
	copy(out, f.inserted)
	return out
}

func (f *fakeRecommender) DeleteFeedback(context.Context, string, string, recommend.FeedbackType) error {
	return nil
}
func (f *fakeRecommender) InsertItem(context.Context, string, []string) error { return nil }
func (f *fakeRecommender) DeleteItem(context.Context, string) error           { return nil }
func (f *fakeRecommender) Recommend(context.Context, string, int, int) ([]string, error) {
	return nil, nil
}

type fakeHistories struct {
	mu    sync.Mutex
	views []string
}

func (f *fakeHistories) RecordView(_ context.Context, userID, videoID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, userID+":"+videoID)
	return nil
}

func (f *fakeHistories) viewed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.views))
	copy(out, f.views)
	return out
}

type pipeline struct {
	bus       *Bus
	publisher *FeedbackPublisher
	rec       *fakeRecommender
	histories *fakeHistories
	cancel    context.CancelFunc
}

func startPipeline(t *testing.T, recFailures int) *pipeline {
	t.Helper()

	logger := logging.NewTestLogger(io.Discard)
	wmLogger := watermill.NopLogger{}
	bus := NewChannelBus(wmLogger)

	rec := &fakeRecommender{failures: recFailures}
	histories := &fakeHistories{}

	router, err := NewRouter(RouterConfig{
		Topic:         "feedback.views",
		PoisonTopic:   "feedback.poison",
		RetryCount:    3,
		RetryInterval: time.Millisecond,
	}, bus, rec, histories, wmLogger, logger)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	t.Cleanup(func() {
		cancel()
		_ = router.Close()
		_ = bus.Close()
	})

	return &pipeline{
		bus:       bus,
		publisher: NewFeedbackPublisher(bus.Publisher, "feedback.views", logger),
		rec:       rec,
		histories: histories,
		cancel:    cancel,
	}
}

func newRawMessage(payload string) *message.Message {
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStartedEventRecordsHistoryAndForwards(t *testing.T) {
	p := startPipeline(t, 0)

	event := NewFeedbackEvent("u1", "v1", KindStarted, "s1")
	if err := p.publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, func() bool { return len(p.rec.feedback()) == 1 }, "feedback not forwarded")

	got := p.rec.feedback()[0]
	if got.kind != recommend.FeedbackRead || got.userID != "u1" || got.videoID != "v1" {
		t.Errorf("forwarded = %+v, want read u1 v1", got)
	}
	if views := p.histories.viewed(); len(views) != 1 || views[0] != "u1:v1" {
		t.Errorf("history = %v, want [u1:v1]", views)
	}
}

func TestFinishedEventForwardsReadall(t *testing.T) {
	p := startPipeline(t, 0)

	event := NewFeedbackEvent("u1", "v2", KindFinished, "s1")
	if err := p.publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, func() bool { return len(p.rec.feedback()) == 1 }, "feedback not forwarded")

	got := p.rec.feedback()[0]
	if got.kind != recommend.FeedbackReadAll {
		t.Errorf("kind = %q, want readall", got.kind)
	}
	if views := p.histories.viewed(); len(views) != 0 {
		t.Errorf("history = %v, want none for FINISHED", views)
	}
}

func TestHandlerRetriesTransientFailure(t *testing.T) {
	p := startPipeline(t, 2)

	event := NewFeedbackEvent("u1", "v3", KindFinished, "s1")
	if err := p.publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// Two failures, then the retry middleware redelivers and it lands.
	waitFor(t, func() bool { return len(p.rec.feedback()) == 1 }, "feedback not forwarded after retries")
}

func TestMalformedEventDropped(t *testing.T) {
	p := startPipeline(t, 0)

	// Publish garbage straight to the topic, then a valid event. The
	// garbage must not wedge the stream.
	msg := newRawMessage(`{not json`)
	if err := p.bus.Publisher.Publish("feedback.views", msg); err != nil {
		t.Fatalf("Publish(raw) error = %v", err)
	}
	if err := p.publisher.Publish(context.Background(), NewFeedbackEvent("u1", "v1", KindStarted, "s1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, func() bool { return len(p.rec.feedback()) == 1 }, "valid event not processed")
}

func TestPublishInvalidEvent(t *testing.T) {
	p := startPipeline(t, 0)

	event := NewFeedbackEvent("", "v1", KindStarted, "s1")
	if err := p.publisher.Publish(context.Background(), event); err == nil {
		t.Error("Publish() = nil error, want validation error")
	}
}

func TestSessionSinkPublishes(t *testing.T) {
	p := startPipeline(t, 0)

	sink := p.publisher.SessionSink("u9", "session-1")
	sink.EmitFeedback("v5", feedsession.FeedbackStarted)
	sink.EmitFeedback("v5", feedsession.FeedbackFinished)

	waitFor(t, func() bool { return len(p.rec.feedback()) == 2 }, "sink events not forwarded")
}

func TestSessionSinkAnonymousIsNoop(t *testing.T) {
	p := startPipeline(t, 0)

	// An anonymous session cannot produce a valid event, so the sink
	// must swallow latches instead of publishing guaranteed failures.
	sink := p.publisher.SessionSink("", "session-1")
	sink.EmitFeedback("v5", feedsession.FeedbackStarted)
	sink.EmitFeedback("v5", feedsession.FeedbackFinished)

	authed := p.publisher.SessionSink("u9", "session-1")
	authed.EmitFeedback("v5", feedsession.FeedbackStarted)

	waitFor(t, func() bool { return len(p.rec.feedback()) == 1 }, "authed sink event not forwarded")
	if got := p.rec.feedback(); len(got) != 1 || got[0].userID != "u9" {
		t.Errorf("feedback = %+v, want one event for u9", got)
	}
}

func TestDedupIDStablePerSession(t *testing.T) {
	a := NewFeedbackEvent("u1", "v1", KindStarted, "s1")
	b := NewFeedbackEvent("u1", "v1", KindStarted, "s1")
	if a.DedupID() != b.DedupID() {
		t.Errorf("DedupID() differs for same latch: %q vs %q", a.DedupID(), b.DedupID())
	}

	c := NewFeedbackEvent("u1", "v1", KindStarted, "s2")
	if a.DedupID() == c.DedupID() {
		t.Error("DedupID() equal across sessions")
	}
}

func TestEventRoundTrip(t *testing.T) {
	event := NewFeedbackEvent("u1", "v1", KindFinished, "s1")
	data, err := event.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := UnmarshalFeedbackEvent(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.EventID != event.EventID || got.Kind != KindFinished || got.VideoID != "v1" {
		t.Errorf("round trip = %+v", got)
	}
}
