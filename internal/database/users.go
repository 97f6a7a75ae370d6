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

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// foreignKeyViolation is the PostgreSQL error code for foreign key
// violations: a reference to a row that does not exist.
const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

// UserRepo persists user accounts.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user and returns it with the generated ID. Returns
// models.ErrAlreadyExists when the name or email is taken.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt,
	)
	metrics.RecordDBQuery("INSERT", "users", time.Since(start), err)

	if isUniqueViolation(err) {
		return nil, models.ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByID returns one user or models.ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail returns one user or models.ErrNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *UserRepo) getBy(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	user := &models.User{}

	start := time.Now()
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, bio, avatar_url, created_at
		 FROM users WHERE `+where, arg,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Bio, &user.AvatarURL, &user.CreatedAt)
	metrics.RecordDBQuery("SELECT", "users", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// UpdateProfile updates the mutable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, bio, avatarURL string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, bio = $3, avatar_url = $4 WHERE id = $1`,
		id, name, bio, avatarURL,
	)
	metrics.RecordDBQuery("UPDATE", "users", time.Since(start), err)

	if isUniqueViolation(err) {
		return models.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetByIDs returns the users that exist among ids, preserving input order.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, password_hash, bio, avatar_url, created_at
		 FROM users WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	metrics.RecordDBQuery("SELECT", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.User, len(ids))
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash,
			&u.Bio, &u.AvatarURL, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	out := make([]models.User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
