// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package feed

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidCursor is returned when a cursor cannot be decoded. Callers
// map it to a client error rather than a server fault.
var ErrInvalidCursor = errors.New("invalid feed cursor")

// cursorSource names where a cursor's position applies.
type cursorSource string

const (
	// sourceRecommender pages through recommender offsets.
	sourceRecommender cursorSource = "rec"
	// sourceLatest pages through videos by creation time.
	sourceLatest cursorSource = "latest"
)

// cursor is the decoded form of the opaque feed cursor. A cursor is only
// meaningful to the source that minted it: once a session falls back to the
// latest-videos source it keeps paging there.
type cursor struct {
	Source cursorSource `json:"s"`

	// Offset is the recommender offset already consumed.
	Offset int `json:"o,omitempty"`

	// Before is the creation-time watermark (UnixMilli) for the latest
	// source; zero means newest first.
	Before int64 `json:"b,omitempty"`
}

// encodeCursor serializes a cursor into its opaque wire form.
func encodeCursor(c cursor) string {
	raw, err := json.Marshal(c)
	if err != nil {
		// cursor has only scalar fields; Marshal cannot fail
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeCursor parses an opaque cursor. An empty string decodes to the start
// of the recommender feed.
func decodeCursor(s string) (cursor, error) {
	if s == "" {
		return cursor{Source: sourceRecommender}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	switch c.Source {
	case sourceRecommender, sourceLatest:
	default:
		return cursor{}, fmt.Errorf("%w: unknown source %q", ErrInvalidCursor, c.Source)
	}
	if c.Offset < 0 || c.Before < 0 {
		return cursor{}, fmt.Errorf("%w: position out of range", ErrInvalidCursor)
	}
	return c, nil
}
