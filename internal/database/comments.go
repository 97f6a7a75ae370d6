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

	"github.com/google/uuid"

	"github.com/vireo-app/vireo/internal/metrics"
	"github.com/vireo-app/vireo/internal/models"
)

// CommentRepo persists comments and comment votes.
type CommentRepo struct {
	db *sql.DB
}

// NewCommentRepo creates a CommentRepo.
func NewCommentRepo(db *sql.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// Create inserts a comment and returns it with the generated ID.
func (r *CommentRepo) Create(ctx context.Context, videoID, authorID, text, imageURL string) (*models.Comment, error) {
	c := &models.Comment{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		Text:      text,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, video_id, author_id, text, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, videoID, authorID, text, imageURL, c.CreatedAt,
	)
	metrics.RecordDBQuery("INSERT", "comments", time.Since(start), err)
	if isForeignKeyViolation(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	c.Author = models.User{ID: authorID}
	return c, nil
}

// ListByVideo returns a video's comments, newest first, with author info,
// vote counters and the calling user's own vote. userID may be empty.
func (r *CommentRepo) ListByVideo(ctx context.Context, videoID, userID string) ([]models.Comment, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.video_id, c.text, c.image_url, c.created_at,
		        u.id, u.name, u.avatar_url,
		        count(*) FILTER (WHERE v.vote = 1),
		        count(*) FILTER (WHERE v.vote = -1),
		        coalesce(bool_or(v.vote = 1 AND v.user_id = $2), false),
		        coalesce(bool_or(v.vote = -1 AND v.user_id = $2), false)
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 LEFT JOIN comment_votes v ON v.comment_id = c.id
		 WHERE c.video_id = $1
		 GROUP BY c.id, u.id
		 ORDER BY c.created_at DESC`,
		videoID, userID,
	)
	metrics.RecordDBQuery("SELECT", "comments", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	defer rows.Close()

	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		var liked, disliked bool
		if err := rows.Scan(&c.ID, &c.VideoID, &c.Text, &c.ImageURL, &c.CreatedAt,
			&c.Author.ID, &c.Author.Name, &c.Author.AvatarURL,
			&c.Likes, &c.Dislikes, &liked, &disliked); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if userID != "" {
			c.CurrentUser = &models.CommentUserState{Liked: liked, Disliked: disliked}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

// Delete removes a comment owned by authorID. It returns
// models.ErrForbidden when the comment belongs to someone else and
// models.ErrNotFound when it does not exist.
func (r *CommentRepo) Delete(ctx context.Context, commentID, authorID string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1 AND author_id = $2`,
		commentID, authorID,
	)
	metrics.RecordDBQuery("DELETE", "comments", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, commentID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check comment: %w", err)
	}
	if exists {
		return models.ErrForbidden
	}
	return models.ErrNotFound
}

// Vote records the user's vote on a comment: 1 likes, -1 dislikes, 0
// clears. Re-voting replaces the previous vote.
func (r *CommentRepo) Vote(ctx context.Context, commentID, userID string, vote int) error {
	if vote != -1 && vote != 0 && vote != 1 {
		return fmt.Errorf("comment vote out of range: %d", vote)
	}

	start := time.Now()
	var err error
	if vote == 0 {
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM comment_votes WHERE comment_id = $1 AND user_id = $2`,
			commentID, userID)
	} else {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO comment_votes (user_id, comment_id, vote)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, comment_id) DO UPDATE SET vote = EXCLUDED.vote`,
			userID, commentID, vote)
	}
	metrics.RecordDBQuery("UPSERT", "comment_votes", time.Since(start), err)
	if isForeignKeyViolation(err) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("vote comment: %w", err)
	}
	return nil
}
