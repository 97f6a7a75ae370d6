// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package feedsession

// DefaultPageSize is the feed page size used when none is configured.
const DefaultPageSize = 5

// WindowConfig configures a feed window.
type WindowConfig struct {
	// PageSize is the number of items per feed page. Default: DefaultPageSize.
	PageSize int

	// Seed, when non-nil, is guaranteed to be present at index 0 before any
	// page data (deep-linked video). It participates in deduplication like
	// any other item.
	Seed *Item
}

// Window is the feed window controller. It owns the ordered, deduplicated
// item sequence, the pagination cursor, and the identity of the currently
// active item, and derives per-item lifecycle state on demand.
//
// Window is not safe for concurrent use; Session serializes all access on a
// single goroutine.
type Window struct {
	pageSize int
	items    []Item
	seen     map[string]struct{}
	activeID string

	cursor    string
	exhausted bool
	fetching  bool
	fetched   bool // first page requested at least once
}

// NewWindow creates a feed window. The seed item, if configured, occupies
// index 0.
func NewWindow(cfg WindowConfig) *Window {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	w := &Window{
		pageSize: cfg.PageSize,
		seen:     make(map[string]struct{}),
	}
	if cfg.Seed != nil {
		w.items = append(w.items, *cfg.Seed)
		w.seen[cfg.Seed.ID] = struct{}{}
	}
	return w
}

// PageSize returns the configured page size.
func (w *Window) PageSize() int {
	return w.pageSize
}

// Len returns the number of items in the deduplicated sequence.
func (w *Window) Len() int {
	return len(w.items)
}

// Items returns the ordered item sequence. The returned slice is the
// window's backing store and must not be mutated.
func (w *Window) Items() []Item {
	return w.items
}

// ActiveID returns the identifier of the active item, or empty if no item
// has intersected yet.
func (w *Window) ActiveID() string {
	return w.activeID
}

// Cursor returns the current pagination cursor.
func (w *Window) Cursor() string {
	return w.cursor
}

// Exhausted reports whether the feed source signaled no further pages.
func (w *Window) Exhausted() bool {
	return w.exhausted
}

// NeedsInitialFetch reports whether the first page has not been requested
// yet. Session uses this to kick off the initial load.
func (w *Window) NeedsInitialFetch() bool {
	return !w.fetched && !w.fetching && !w.exhausted
}

// BeginFetch marks a page fetch as in flight and returns the cursor to
// request. It returns false when a fetch is already in flight or the source
// is exhausted; this is the in-flight guard that dedupes the at-least-once
// prefetch trigger.
func (w *Window) BeginFetch() (cursor string, ok bool) {
	if w.fetching || w.exhausted {
		return "", false
	}
	w.fetching = true
	w.fetched = true
	return w.cursor, true
}

// Merge appends a fetched page to the sequence, skipping identifiers already
// seen, and consumes the page's cursor. Per-page order and page arrival
// order are preserved; existing entries are never reordered.
func (w *Window) Merge(page Page) {
	w.fetching = false
	for _, item := range page.Items {
		if _, dup := w.seen[item.ID]; dup {
			continue
		}
		w.items = append(w.items, item)
		w.seen[item.ID] = struct{}{}
	}
	w.cursor = page.NextCursor
	if page.NextCursor == "" {
		w.exhausted = true
	}
}

// FetchFailed clears the in-flight flag, leaving the cursor unchanged. The
// next qualifying intersection retries naturally; there is no dedicated
// retry state machine.
func (w *Window) FetchFailed() {
	w.fetching = false
}

// Observe processes one intersection-event batch.
//
// For every visible entry whose identifier sits within the last pageSize
// items of the sequence, a prefetch is requested (reported via needFetch;
// the in-flight guard in BeginFetch dedupes it). Every visible entry also
// becomes the active item in batch order, so the last one processed wins:
// batch order, not spatial order, decides ties.
//
// A batch with no visible entries leaves the active item unchanged; there is
// no lost-active fallback. Entries naming an ID the sequence never held are
// dropped: observations are client input and only feed members may activate.
func (w *Window) Observe(batch []Intersection) (activeChanged bool, needFetch bool) {
	tail := len(w.items) - w.pageSize
	if tail < 0 {
		tail = 0
	}
	tailIDs := make(map[string]struct{}, w.pageSize)
	for _, item := range w.items[tail:] {
		tailIDs[item.ID] = struct{}{}
	}

	prev := w.activeID
	for _, entry := range batch {
		if !entry.Visible {
			continue
		}
		// Only sequence members can become active; a client reporting
		// an ID the feed never served is ignored.
		if _, member := w.seen[entry.ID]; !member {
			continue
		}
		if _, inTail := tailIDs[entry.ID]; inTail {
			needFetch = true
		}
		w.activeID = entry.ID
	}
	return w.activeID != prev, needFetch
}

// indexOf returns the position of id in the sequence, or -1.
func (w *Window) indexOf(id string) int {
	for i, item := range w.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// activePage returns the page index of the active item, or 0 when no item is
// active or the active identifier is unknown.
func (w *Window) activePage() int {
	idx := w.indexOf(w.activeID)
	if idx < 0 {
		return 0
	}
	return idx / w.pageSize
}

// StateOf derives the lifecycle state of the given item. State is recomputed
// from the current active identifier on every call, never stored, so there
// is no hysteresis: an item whose page index drops below the active page is
// unmounted, the active item is active, everything else is mounted.
func (w *Window) StateOf(id string) State {
	idx := w.indexOf(id)
	if idx < 0 {
		return StateUnmounted
	}
	if id == w.activeID {
		return StateActive
	}
	if idx/w.pageSize < w.activePage() {
		return StateUnmounted
	}
	return StateMounted
}

// Snapshot derives the full window view: every item paired with its current
// lifecycle state.
func (w *Window) Snapshot() Snapshot {
	active := w.activePage()
	states := make([]ItemState, len(w.items))
	for i, item := range w.items {
		state := StateMounted
		switch {
		case item.ID == w.activeID:
			state = StateActive
		case i/w.pageSize < active:
			state = StateUnmounted
		}
		states[i] = ItemState{Item: item, State: state}
	}
	return Snapshot{
		Items:     states,
		ActiveID:  w.activeID,
		Exhausted: w.exhausted,
	}
}
