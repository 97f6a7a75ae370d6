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

	"github.com/lib/pq"

	"github.com/vireo-app/vireo/internal/metrics"
	"github.com/vireo-app/vireo/internal/models"
)

// HistoryRepo persists per-user view history.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// RecordView upserts a view: re-watching a video refreshes its viewed_at
// rather than adding a row.
func (r *HistoryRepo) RecordView(ctx context.Context, userID, videoID string, viewedAt time.Time) error {
	if viewedAt.IsZero() {
		viewedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO histories (user_id, video_id, viewed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, video_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at`,
		userID, videoID, viewedAt,
	)
	metrics.RecordDBQuery("UPSERT", "histories", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// ListByUser returns the user's history, most recent first.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT h.viewed_at, `+prefixedVideoColumns("v")+`
		 FROM histories h
		 JOIN videos v ON v.id = h.video_id
		 WHERE h.user_id = $1
		 ORDER BY h.viewed_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	metrics.RecordDBQuery("SELECT", "histories", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select histories: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		v := &e.Video
		if err := rows.Scan(&e.ViewedAt,
			&v.ID, &v.Title, &v.Description, &v.URL, &v.CoverURL,
			&v.AuthorID, &v.Category, pq.Array(&v.Tags), &v.Views, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate histories: %w", err)
	}
	return out, nil
}

// Delete removes one history entry. Deleting a missing entry returns
// models.ErrNotFound.
func (r *HistoryRepo) Delete(ctx context.Context, userID, videoID string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM histories WHERE user_id = $1 AND video_id = $2`,
		userID, videoID,
	)
	metrics.RecordDBQuery("DELETE", "histories", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// prefixedVideoColumns qualifies the video column list with a table alias.
func prefixedVideoColumns(alias string) string {
	return alias + ".id, " + alias + ".title, " + alias + ".description, " +
		alias + ".url, " + alias + ".cover_url, " + alias + ".author_id, " +
		alias + ".category, " + alias + ".tags, " + alias + ".views, " + alias + ".created_at"
}
