// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vireo-app/vireo/internal/metrics"
	"github.com/vireo-app/vireo/internal/models"
)

// VideoRepo persists videos.
type VideoRepo struct {
	db *sql.DB
}

// NewVideoRepo creates a VideoRepo.
func NewVideoRepo(db *sql.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

const videoColumns = `id, title, description, url, cover_url, author_id, category, tags, views, created_at`

func scanVideo(row interface{ Scan(...interface{}) error }) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.URL, &v.CoverURL,
		&v.AuthorID, &v.Category, pq.Array(&v.Tags), &v.Views, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Create inserts a new video and returns it with the generated ID.
func (r *VideoRepo) Create(ctx context.Context, v models.Video) (*models.Video, error) {
	v.ID = uuid.New().String()
	v.CreatedAt = time.Now().UTC()
	if v.Tags == nil {
		v.Tags = []string{}
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO videos (id, title, description, url, cover_url, author_id, category, tags, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.Title, v.Description, v.URL, v.CoverURL, v.AuthorID, v.Category,
		pq.Array(v.Tags), v.CreatedAt,
	)
	metrics.RecordDBQuery("INSERT", "videos", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return &v, nil
}

// GetVideo returns one video or models.ErrNotFound.
func (r *VideoRepo) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	v, err := scanVideo(row)
	metrics.RecordDBQuery("SELECT", "videos", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select video: %w", err)
	}
	return v, nil
}

// GetVideosByIDs returns the videos that exist among ids, preserving input
// order. Missing IDs are skipped.
func (r *VideoRepo) GetVideosByIDs(ctx context.Context, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE id = ANY($1)`, pq.Array(ids))
	metrics.RecordDBQuery("SELECT", "videos", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select videos: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.Video, len(ids))
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		byID[v.ID] = *v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	out := make([]models.Video, 0, len(byID))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// LatestVideos returns up to limit videos created strictly before the
// watermark, newest first. A zero watermark means now.
func (r *VideoRepo) LatestVideos(ctx context.Context, before time.Time, limit int) ([]models.Video, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos
		 WHERE created_at < $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		before, limit,
	)
	metrics.RecordDBQuery("SELECT", "videos", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select latest videos: %w", err)
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return out, nil
}

// ByAuthor returns a user's videos, newest first.
func (r *VideoRepo) ByAuthor(ctx context.Context, authorID string) ([]models.Video, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos
		 WHERE author_id = $1 ORDER BY created_at DESC`,
		authorID,
	)
	metrics.RecordDBQuery("SELECT", "videos", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select author videos: %w", err)
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return out, nil
}

// Delete removes a video owned by authorID. Returns models.ErrNotFound
// when the video does not exist and models.ErrForbidden when it belongs to
// someone else.
func (r *VideoRepo) Delete(ctx context.Context, id, authorID string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM videos WHERE id = $1 AND author_id = $2`, id, authorID)
	metrics.RecordDBQuery("DELETE", "videos", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check video existence: %w", err)
		}
		if exists {
			return models.ErrForbidden
		}
		return models.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the denormalized view counter.
func (r *VideoRepo) IncrementViews(ctx context.Context, id string) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	metrics.RecordDBQuery("UPDATE", "videos", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}
