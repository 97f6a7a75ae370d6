// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package api provides the HTTP surface of Vireo: the chi router, the
// request/response envelope, and the handlers for users, videos,
// comments, feed, views, and uploads.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/models"
	"github.com/vireo-app/vireo/internal/validation"
)

// Error codes used in the APIResponse envelope.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeBadRequest    = "BAD_REQUEST"
	CodeInternal      = "INTERNAL_ERROR"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
)

// maxRequestBody caps JSON request bodies at 1 MiB. Uploads never pass
// through this server, so nothing legitimate comes close.
const maxRequestBody = 1 << 20

// APIResponse is the uniform envelope for every JSON endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries a machine-readable code alongside the human message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are gone; nothing left to do but log at the caller.
		_ = err
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, APIResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Details: details},
	})
}

// respondDomainError maps the sentinel errors from repositories and
// services to HTTP statuses. Unknown errors become a 500 with a generic
// message; the real cause goes to the log only.
func respondDomainError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Not found", nil)
	case errors.Is(err, models.ErrAlreadyExists):
		respondError(w, http.StatusConflict, CodeAlreadyExists, "Already exists", nil)
	case errors.Is(err, models.ErrForbidden):
		respondError(w, http.StatusForbidden, CodeForbidden, "Forbidden", nil)
	default:
		logger.Error().Err(err).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, CodeInternal, "Internal error", nil)
	}
}

// decodeJSON reads a request body into dst, rejecting unknown fields
// and oversized payloads.
func decodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
