// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/events"
	"github.com/vireo-app/vireo/internal/models"
)

// StartedView records that playback of a video started. The view
// counter bumps synchronously; history and recommender feedback flow
// through the event pipeline. Clients with a live session stream send
// this over the websocket instead; this endpoint covers plain REST
// clients.
func (h *Handlers) StartedView(w http.ResponseWriter, r *http.Request) {
	h.recordView(w, r, events.KindStarted)
}

// FinishedView records that playback of a video effectively completed.
func (h *Handlers) FinishedView(w http.ResponseWriter, r *http.Request) {
	h.recordView(w, r, events.KindFinished)
}

func (h *Handlers) recordView(w http.ResponseWriter, r *http.Request, kind string) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	if kind == events.KindStarted {
		if err := h.videos.IncrementViews(r.Context(), videoID); err != nil {
			h.logger.Warn().Err(err).Str("video_id", videoID).Msg("View counter bump failed")
		}
	}

	event := events.NewFeedbackEvent(userID, videoID, kind, "")
	if err := h.feedback.Publish(r.Context(), event); err != nil {
		// Feedback is best-effort; the client's playback must not stall
		// on a broker hiccup.
		h.logger.Warn().Err(err).Str("video_id", videoID).Msg("Feedback publish failed")
	}

	respondData(w, http.StatusAccepted, map[string]bool{"recorded": true})
}

// Histories returns the caller's view history, most recent first.
func (h *Handlers) Histories(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	entries, err := h.histories.ListByUser(r.Context(), userID, historyListLimit)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	respondData(w, http.StatusOK, entries)
}

// DeleteHistory removes one entry from the caller's view history.
func (h *Handlers) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID := chi.URLParam(r, "videoID")

	if err := h.histories.Delete(r.Context(), userID, videoID); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"deleted": true})
}
