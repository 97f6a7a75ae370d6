// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthLive reports process liveness. It always succeeds while the
// process can serve requests.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady reports readiness: the configured probe (a database ping)
// must succeed within two seconds.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.readyProbe == nil {
		respondData(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.readyProbe(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Readiness probe failed")
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Not ready", nil)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"})
}
