// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/metrics"
	"github.com/vireo-app/vireo/internal/upload"
)

// UploadTicket issues a signed POST-policy ticket for a direct-to-bucket
// upload. The category path segment selects the key prefix and size cap
// (avatar, video, or cover). File bytes never pass through this server.
func (h *Handlers) UploadTicket(w http.ResponseWriter, r *http.Request) {
	category := upload.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Unknown upload category", nil)
		return
	}

	ticket, err := h.tickets.Issue(category)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	metrics.UploadTicketsIssued.WithLabelValues(string(category)).Inc()
	h.logger.Debug().
		Str("category", string(category)).
		Str("user_id", auth.UserIDFromContext(r.Context())).
		Msg("Upload ticket issued")
	respondData(w, http.StatusOK, ticket)
}
