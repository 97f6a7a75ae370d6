// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/models"
	"github.com/vireo-app/vireo/internal/search"
	"github.com/vireo-app/vireo/internal/validation"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type updateProfileRequest struct {
	Name      string `json:"name" validate:"required,username"`
	Bio       string `json:"bio" validate:"max=500"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// Register creates an account and returns a fresh token.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Malformed request body", nil)
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	hashed, err := h.password.Hash(req.Password)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, strings.ToLower(req.Email), hashed)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			respondError(w, http.StatusConflict, CodeAlreadyExists, "Name or email already taken", nil)
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}

	// Index the new profile so user search finds it. Not fatal.
	if err := h.search.IndexUser(r.Context(), search.UserDocument{
		ID:   user.ID,
		Name: user.Name,
		Bio:  user.Bio,
	}); err != nil {
		h.logger.Warn().Err(err).Str("user_id", user.ID).Msg("User index write failed")
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Name)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.Info().Str("user_id", user.ID).Msg("User registered")
	respondData(w, http.StatusCreated, authResponse{Token: token, User: *user})
}

// Login verifies credentials and returns a token. Wrong email and wrong
// password are indistinguishable to the caller.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Malformed request body", nil)
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid credentials", nil)
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.password.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid credentials", nil)
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Name)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondData(w, http.StatusOK, authResponse{Token: token, User: *user})
}

// Logout revokes the presented token until its natural expiry.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", nil)
		return
	}

	expiry := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	if err := h.revoked.Revoke(r.Context(), claims.ID, expiry); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"logged_out": true})
}

// Me returns the authenticated user's own record, email included.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's name, bio, and avatar,
// and refreshes the search index entry.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Malformed request body", nil)
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if err := h.users.UpdateProfile(r.Context(), userID, req.Name, req.Bio, req.AvatarURL); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			respondError(w, http.StatusConflict, CodeAlreadyExists, "Name already taken", nil)
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.search.IndexUser(r.Context(), search.UserDocument{
		ID:   userID,
		Name: req.Name,
		Bio:  req.Bio,
	}); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("User index write failed")
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, user)
}

// GetUser returns a public user profile.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, user.Public())
}

// SearchUsers queries the search index and hydrates matches from the
// database, preserving relevance order.
func (h *Handlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Query parameter q is required", nil)
		return
	}

	ids, err := h.search.SearchUsers(r.Context(), query, userSearchLimit)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	users, err := h.users.GetByIDs(r.Context(), ids)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	public := make([]models.User, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	respondData(w, http.StatusOK, public)
}

// UserVideos lists a user's uploads, newest first.
func (h *Handlers) UserVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.ByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	respondData(w, http.StatusOK, videos)
}

// LikedVideos lists the videos the authenticated user has liked.
func (h *Handlers) LikedVideos(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	ids, err := h.likes.LikedVideoIDs(r.Context(), userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	videos, err := h.videos.GetVideosByIDs(r.Context(), ids)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	respondData(w, http.StatusOK, videos)
}

// CollectedVideos lists the videos the authenticated user has collected.
func (h *Handlers) CollectedVideos(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	ids, err := h.likes.CollectedVideoIDs(r.Context(), userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	videos, err := h.videos.GetVideosByIDs(r.Context(), ids)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	respondData(w, http.StatusOK, videos)
}
