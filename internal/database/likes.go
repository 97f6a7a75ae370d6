// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vireo-app/vireo/internal/metrics"
	"github.com/vireo-app/vireo/internal/models"
)

// LikeRepo persists video likes and collections. Both are simple
// (user, video) relations and share the implementation.
type LikeRepo struct {
	db *sql.DB
}

// NewLikeRepo creates a LikeRepo.
func NewLikeRepo(db *sql.DB) *LikeRepo {
	return &LikeRepo{db: db}
}

// Like records a like. Liking twice returns models.ErrAlreadyExists.
func (r *LikeRepo) Like(ctx context.Context, userID, videoID string) error {
	return r.insert(ctx, "likes", userID, videoID)
}

// Unlike removes a like. Removing a missing like returns models.ErrNotFound.
func (r *LikeRepo) Unlike(ctx context.Context, userID, videoID string) error {
	return r.delete(ctx, "likes", userID, videoID)
}

// Collect records a collection entry.
func (r *LikeRepo) Collect(ctx context.Context, userID, videoID string) error {
	return r.insert(ctx, "collections", userID, videoID)
}

// Uncollect removes a collection entry.
func (r *LikeRepo) Uncollect(ctx context.Context, userID, videoID string) error {
	return r.delete(ctx, "collections", userID, videoID)
}

func (r *LikeRepo) insert(ctx context.Context, table, userID, videoID string) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (user_id, video_id) VALUES ($1, $2)`,
		userID, videoID,
	)
	metrics.RecordDBQuery("INSERT", table, time.Since(start), err)
	if isUniqueViolation(err) {
		return models.ErrAlreadyExists
	}
	if isForeignKeyViolation(err) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (r *LikeRepo) delete(ctx context.Context, table, userID, videoID string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE user_id = $1 AND video_id = $2`,
		userID, videoID,
	)
	metrics.RecordDBQuery("DELETE", table, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// LikedVideoIDs returns the IDs of videos a user has liked, most recent
// like first.
func (r *LikeRepo) LikedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	return r.videoIDs(ctx, "likes", userID)
}

// CollectedVideoIDs returns the IDs of videos a user has collected.
func (r *LikeRepo) CollectedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	return r.videoIDs(ctx, "collections", userID)
}

func (r *LikeRepo) videoIDs(ctx context.Context, table, userID string) ([]string, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT video_id FROM `+table+` WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	metrics.RecordDBQuery("SELECT", table, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// VideoStats returns the aggregate counters for a video plus the calling
// user's own relation to it. userID may be empty for anonymous callers.
func (r *LikeRepo) VideoStats(ctx context.Context, videoID, userID string) (*models.VideoStats, error) {
	stats := &models.VideoStats{}

	start := time.Now()
	err := r.db.QueryRowContext(ctx,
		`SELECT
		    (SELECT count(*) FROM likes WHERE video_id = $1),
		    (SELECT count(*) FROM comments WHERE video_id = $1)`,
		videoID,
	).Scan(&stats.Likes, &stats.Comments)
	metrics.RecordDBQuery("SELECT", "likes", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select video stats: %w", err)
	}

	if userID == "" {
		return stats, nil
	}

	state := &models.VideoUserState{}
	err = r.db.QueryRowContext(ctx,
		`SELECT
		    EXISTS (SELECT 1 FROM likes WHERE video_id = $1 AND user_id = $2),
		    EXISTS (SELECT 1 FROM collections WHERE video_id = $1 AND user_id = $2)`,
		videoID, userID,
	).Scan(&state.Liked, &state.Collected)
	if err != nil {
		return nil, fmt.Errorf("select video user state: %w", err)
	}
	stats.CurrentUser = state
	return stats, nil
}
