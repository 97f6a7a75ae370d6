// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/models"
	"github.com/vireo-app/vireo/internal/recommend"
	"github.com/vireo-app/vireo/internal/search"
	"github.com/vireo-app/vireo/internal/validation"
)

type createVideoRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	URL         string   `json:"url" validate:"required,url"`
	CoverURL    string   `json:"cover_url" validate:"omitempty,url"`
	Category    string   `json:"category" validate:"max=50"`
	Tags        []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
}

type postCommentRequest struct {
	Text     string `json:"text" validate:"required,min=1,max=1000"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

type voteCommentRequest struct {
	// Vote is 1 (like), -1 (dislike), or 0 (clear).
	Vote int `json:"vote" validate:"min=-1,max=1"`
}

// CreateVideo stores a video row and projects it into the search index
// and the recommender catalog. The projections are best-effort: a dead
// index must not block publishing.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req createVideoRequest
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
	video, err := h.videos.Create(r.Context(), models.Video{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		CoverURL:    req.CoverURL,
		AuthorID:    userID,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.search.IndexVideo(r.Context(), search.VideoDocument{
		ID:          video.ID,
		Title:       video.Title,
		Description: video.Description,
		Tags:        video.Tags,
	}); err != nil {
		h.logger.Warn().Err(err).Str("video_id", video.ID).Msg("Video index write failed")
	}

	var categories []string
	if video.Category != "" {
		categories = []string{video.Category}
	}
	if err := h.recommender.InsertItem(r.Context(), video.ID, categories); err != nil {
		h.logger.Warn().Err(err).Str("video_id", video.ID).Msg("Recommender item insert failed")
	}

	h.logger.Info().Str("video_id", video.ID).Str("author_id", userID).Msg("Video created")
	respondData(w, http.StatusCreated, video)
}

// GetVideo returns one video.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.GetVideo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, video)
}

// DeleteVideo removes a video the caller owns, then clears its search
// and recommender projections.
func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.videos.Delete(r.Context(), videoID, userID); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.search.DeleteVideo(r.Context(), videoID); err != nil {
		h.logger.Warn().Err(err).Str("video_id", videoID).Msg("Video index delete failed")
	}
	if err := h.recommender.DeleteItem(r.Context(), videoID); err != nil {
		h.logger.Warn().Err(err).Str("video_id", videoID).Msg("Recommender item delete failed")
	}

	h.logger.Info().Str("video_id", videoID).Str("author_id", userID).Msg("Video deleted")
	respondData(w, http.StatusOK, map[string]bool{"deleted": true})
}

// SearchVideos queries the search index and hydrates matches from the
// database, preserving relevance order.
func (h *Handlers) SearchVideos(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Query parameter q is required", nil)
		return
	}

	ids, err := h.search.SearchVideos(r.Context(), query, videoSearchLimit)
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

// VideoStats returns like/comment counters plus the caller's own
// relation to the video. Works anonymously.
func (h *Handlers) VideoStats(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	stats, err := h.likes.VideoStats(r.Context(), videoID, userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// LikeVideo records a like and forwards it to the recommender as
// explicit positive feedback.
func (h *Handlers) LikeVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.likes.Like(r.Context(), userID, videoID); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			respondData(w, http.StatusOK, map[string]bool{"liked": true})
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.recommender.InsertFeedback(r.Context(), userID, videoID, recommend.FeedbackLike); err != nil {
		h.logger.Warn().Err(err).Str("video_id", videoID).Msg("Recommender like insert failed")
	}
	respondData(w, http.StatusOK, map[string]bool{"liked": true})
}

// UnlikeVideo removes a like and the matching recommender feedback.
func (h *Handlers) UnlikeVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.likes.Unlike(r.Context(), userID, videoID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondData(w, http.StatusOK, map[string]bool{"liked": false})
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}

	if err := h.recommender.DeleteFeedback(r.Context(), userID, videoID, recommend.FeedbackLike); err != nil {
		h.logger.Warn().Err(err).Str("video_id", videoID).Msg("Recommender like delete failed")
	}
	respondData(w, http.StatusOK, map[string]bool{"liked": false})
}

// CollectVideo adds a video to the caller's collection.
func (h *Handlers) CollectVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.likes.Collect(r.Context(), userID, videoID); err != nil && !errors.Is(err, models.ErrAlreadyExists) {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"collected": true})
}

// UncollectVideo removes a video from the caller's collection.
func (h *Handlers) UncollectVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.likes.Uncollect(r.Context(), userID, videoID); err != nil && !errors.Is(err, models.ErrNotFound) {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"collected": false})
}

// ListComments returns a video's comments with vote counters and, for
// authenticated callers, their own vote on each.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	comments, err := h.comments.ListByVideo(r.Context(), videoID, userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	respondData(w, http.StatusOK, comments)
}

// PostComment adds a comment to a video.
func (h *Handlers) PostComment(w http.ResponseWriter, r *http.Request) {
	var req postCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Malformed request body", nil)
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	videoID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	comment, err := h.comments.Create(r.Context(), videoID, userID, req.Text, req.ImageURL)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusCreated, comment)
}

// DeleteComment removes a comment the caller authored.
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentID")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.comments.Delete(r.Context(), commentID, userID); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"deleted": true})
}

// VoteComment records the caller's like/dislike on a comment.
func (h *Handlers) VoteComment(w http.ResponseWriter, r *http.Request) {
	var req voteCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Malformed request body", nil)
		return
	}

	commentID := chi.URLParam(r, "commentID")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.comments.Vote(r.Context(), commentID, userID, req.Vote); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int{"vote": req.Vote})
}
