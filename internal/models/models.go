// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package models defines the domain types shared across Vireo components:
// users, videos, comments, the feed page shape returned by the recommendation
// endpoint, and view-history entries.
//
// All types are plain data carriers. Persistence lives in internal/database,
// request/response envelopes in internal/api.
package models

import (
	"errors"
	"time"
)

// Sentinel errors returned by repositories and services. Handlers map these
// to API error codes.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a uniqueness conflict (duplicate email,
	// duplicate like).
	ErrAlreadyExists = errors.New("already exists")

	// ErrForbidden indicates the caller does not own the target entity.
	ErrForbidden = errors.New("forbidden")
)

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// PasswordHash is never serialized.
	PasswordHash string `json:"-"`
}

// Public strips fields that must not leave the server (email stays private
// unless the user requests their own record).
func (u User) Public() User {
	u.Email = ""
	u.PasswordHash = ""
	return u
}

// Video is an uploaded short video.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	CoverURL    string    `json:"cover_url"`
	AuthorID    string    `json:"author_id"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Views       int64     `json:"views"`
	CreatedAt   time.Time `json:"created_at"`
}

// VideoStats carries the aggregate counters and the caller's own relation to
// a video, mirroring the extra-metadata endpoint.
type VideoStats struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`

	// CurrentUser is nil for anonymous callers.
	CurrentUser *VideoUserState `json:"current_user"`
}

// VideoUserState is the calling user's relation to a video.
type VideoUserState struct {
	Liked     bool `json:"liked"`
	Collected bool `json:"collected"`
}

// Comment is a comment on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	Author    User      `json:"author"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
	CreatedAt time.Time `json:"created_at"`

	// CurrentUser is nil for anonymous callers.
	CurrentUser *CommentUserState `json:"current_user"`
}

// CommentUserState is the calling user's relation to a comment.
type CommentUserState struct {
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
}

// FeedPage is one page of the recommendation feed. NextCursor is opaque to
// clients; an empty cursor signals no further pages.
type FeedPage struct {
	Videos     []Video `json:"videos"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// HistoryEntry records one viewed video for a user.
type HistoryEntry struct {
	Video    Video     `json:"video"`
	ViewedAt time.Time `json:"viewed_at"`
}
