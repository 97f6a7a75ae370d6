// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"errors"
	"net/http"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/feed"
)

// Feed returns one page of the recommendation feed.
//
// Query parameters:
//   - cursor: opaque cursor from a previous page; empty starts over
//   - seed: video ID to pin at the head of the first page (share links)
//
// Anonymous callers get the latest-videos feed; authenticated callers
// get personalized recommendations with latest-videos fallback.
func (h *Handlers) Feed(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	cursor := r.URL.Query().Get("cursor")
	seedID := r.URL.Query().Get("seed")

	page, err := h.feed.FetchPage(r.Context(), userID, seedID, cursor)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidCursor) {
			respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid cursor", nil)
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, page)
}
