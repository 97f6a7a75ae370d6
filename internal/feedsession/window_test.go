// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package feedsession

import (
	"fmt"
	"testing"
)

func item(id string) Item {
	return Item{ID: id, Title: "video " + id, URL: "https://cdn.example.com/" + id + ".mp4"}
}

func page(next string, ids ...string) Page {
	p := Page{NextCursor: next}
	for _, id := range ids {
		p.Items = append(p.Items, item(id))
	}
	return p
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestWindowDeduplication(t *testing.T) {
	tests := []struct {
		name  string
		seed  *Item
		pages []Page
		want  []string
	}{
		{
			name:  "duplicate across pages kept at first-seen position",
			pages: []Page{page("c1", "a", "b", "c"), page("c2", "b", "d", "a", "e")},
			want:  []string{"a", "b", "c", "d", "e"},
		},
		{
			name:  "duplicate within a page",
			pages: []Page{page("c1", "a", "a", "b")},
			want:  []string{"a", "b"},
		},
		{
			name:  "seed reappearing in a later page is not duplicated",
			seed:  &Item{ID: "s"},
			pages: []Page{page("c1", "a", "s", "b")},
			want:  []string{"s", "a", "b"},
		},
		{
			name:  "server order preserved within and across pages",
			pages: []Page{page("c1", "e", "a"), page("", "c", "b")},
			want:  []string{"e", "a", "c", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(WindowConfig{PageSize: 3, Seed: tt.seed})
			for _, p := range tt.pages {
				w.Merge(p)
			}
			got := ids(w.Items())
			if len(got) != len(tt.want) {
				t.Fatalf("items = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("items[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWindowSingleActive(t *testing.T) {
	w := NewWindow(WindowConfig{PageSize: 2})
	w.Merge(page("c1", "a", "b", "c", "d"))

	// Two entries intersect in the same batch: the last one processed wins.
	changed, _ := w.Observe([]Intersection{
		{ID: "a", Visible: true},
		{ID: "b", Visible: true},
	})
	if !changed {
		t.Error("Observe() changed = false, want true")
	}
	if w.ActiveID() != "b" {
		t.Errorf("ActiveID() = %q, want %q", w.ActiveID(), "b")
	}

	active := 0
	for _, is := range w.Snapshot().Items {
		if is.State == StateActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("active count = %d, want 1", active)
	}
}

func TestWindowIgnoresNonMemberObservation(t *testing.T) {
	w := NewWindow(WindowConfig{PageSize: 2})
	w.Merge(page("c1", "a", "b"))
	w.Observe([]Intersection{{ID: "a", Visible: true}})

	// Observations are client input: an ID the feed never served must not
	// activate or displace the real active item.
	changed, needFetch := w.Observe([]Intersection{{ID: "bogus", Visible: true}})
	if changed {
		t.Error("Observe() changed = true, want false")
	}
	if needFetch {
		t.Error("Observe() needFetch = true, want false")
	}
	if w.ActiveID() != "a" {
		t.Errorf("ActiveID() = %q, want %q", w.ActiveID(), "a")
	}
	if got := w.Snapshot().Items[0].State; got != StateActive {
		t.Errorf("StateOf(a) = %v, want %v", got, StateActive)
	}

	// Mixed batch: the member still wins, the stranger is skipped.
	w.Observe([]Intersection{
		{ID: "b", Visible: true},
		{ID: "bogus", Visible: true},
	})
	if w.ActiveID() != "b" {
		t.Errorf("ActiveID() = %q, want %q", w.ActiveID(), "b")
	}
}

func TestWindowActiveUnchangedWhenNothingVisible(t *testing.T) {
	w := NewWindow(WindowConfig{PageSize: 2})
	w.Merge(page("c1", "a", "b"))
	w.Observe([]Intersection{{ID: "a", Visible: true}})

	// Fast scroll past the threshold zone: no entry visible.
	changed, _ := w.Observe([]Intersection{{ID: "b", Visible: false}})
	if changed {
		t.Error("Observe() changed = true, want false")
	}
	if w.ActiveID() != "a" {
		t.Errorf("ActiveID() = %q, want %q (no lost-active fallback)", w.ActiveID(), "a")
	}
}

func TestWindowStateDerivation(t *testing.T) {
	// Three pages of two: [a b] [c d] [e].
	w := NewWindow(WindowConfig{PageSize: 2})
	w.Merge(page("c1", "a", "b", "c", "d", "e"))

	w.Observe([]Intersection{{ID: "c", Visible: true}})

	tests := []struct {
		id   string
		want State
	}{
		{"a", StateUnmounted}, // page 0 < active page 1
		{"b", StateUnmounted},
		{"c", StateActive},
		{"d", StateMounted}, // same page as active
		{"e", StateMounted}, // later page
	}
	for _, tt := range tests {
		if got := w.StateOf(tt.id); got != tt.want {
			t.Errorf("StateOf(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}

	// State derives from the current active index only: scrolling back up
	// remounts earlier pages without hysteresis.
	w.Observe([]Intersection{{ID: "a", Visible: true}})
	if got := w.StateOf("b"); got != StateMounted {
		t.Errorf("StateOf(b) after scroll-back = %v, want %v", got, StateMounted)
	}
	if got := w.StateOf("e"); got != StateMounted {
		t.Errorf("StateOf(e) after scroll-back = %v, want %v", got, StateMounted)
	}
}

func TestWindowUnknownIDUnmounted(t *testing.T) {
	w := NewWindow(WindowConfig{})
	if got := w.StateOf("ghost"); got != StateUnmounted {
		t.Errorf("StateOf(ghost) = %v, want %v", got, StateUnmounted)
	}
}

func TestWindowEmptyFeed(t *testing.T) {
	// Empty feed before the first page resolves must not panic, and an
	// observation naming an ID the feed never served cannot activate.
	w := NewWindow(WindowConfig{})
	changed, needFetch := w.Observe([]Intersection{{ID: "a", Visible: true}})
	if changed {
		t.Error("Observe() changed = true, want false for empty window")
	}
	if needFetch {
		t.Error("Observe() needFetch = true, want false for empty window")
	}
	snap := w.Snapshot()
	if len(snap.Items) != 0 {
		t.Errorf("Snapshot().Items = %v, want empty", snap.Items)
	}
	if w.ActiveID() != "" {
		t.Errorf("ActiveID() = %q, want empty", w.ActiveID())
	}
}

func TestWindowPrefetchTrigger(t *testing.T) {
	// pageSize=5, 12 videos: an intersection on index 7 (within the last 5)
	// must trigger exactly one next-page fetch.
	w := NewWindow(WindowConfig{PageSize: 5})
	var all []string
	for i := 0; i < 12; i++ {
		all = append(all, fmt.Sprintf("v%02d", i))
	}
	w.Merge(Page{Items: func() []Item {
		items := make([]Item, len(all))
		for i, id := range all {
			items[i] = item(id)
		}
		return items
	}(), NextCursor: "c1"})

	fetches := 0
	observe := func(idx int) {
		_, needFetch := w.Observe([]Intersection{{ID: all[idx], Visible: true}})
		if needFetch {
			if _, ok := w.BeginFetch(); ok {
				fetches++
			}
		}
	}

	observe(3) // outside the tail window: no trigger
	if fetches != 0 {
		t.Fatalf("fetches after index 3 = %d, want 0", fetches)
	}

	observe(7) // within the last 5 of 12: trigger
	if fetches != 1 {
		t.Fatalf("fetches after index 7 = %d, want 1", fetches)
	}

	// A second qualifying intersection while the fetch is in flight is
	// deduplicated by the guard.
	observe(8)
	if fetches != 1 {
		t.Fatalf("fetches with fetch in flight = %d, want 1", fetches)
	}

	// After a failure the guard clears and the trigger fires again.
	w.FetchFailed()
	observe(8)
	if fetches != 2 {
		t.Fatalf("fetches after retry = %d, want 2", fetches)
	}
}

func TestWindowCursorLifecycle(t *testing.T) {
	w := NewWindow(WindowConfig{PageSize: 2})

	cursor, ok := w.BeginFetch()
	if !ok || cursor != "" {
		t.Fatalf("BeginFetch() = (%q, %v), want (\"\", true)", cursor, ok)
	}
	w.Merge(page("next-1", "a", "b"))

	cursor, ok = w.BeginFetch()
	if !ok || cursor != "next-1" {
		t.Fatalf("BeginFetch() = (%q, %v), want (\"next-1\", true)", cursor, ok)
	}

	// A failed fetch leaves the cursor unchanged.
	w.FetchFailed()
	if w.Cursor() != "next-1" {
		t.Errorf("Cursor() after failure = %q, want %q", w.Cursor(), "next-1")
	}

	// An empty next cursor exhausts the source: no further fetches.
	if _, ok := w.BeginFetch(); !ok {
		t.Fatal("BeginFetch() after failure = false, want true")
	}
	w.Merge(page("", "c"))
	if !w.Exhausted() {
		t.Error("Exhausted() = false, want true")
	}
	if _, ok := w.BeginFetch(); ok {
		t.Error("BeginFetch() on exhausted source = true, want false")
	}
}
