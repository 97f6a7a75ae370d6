// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Key prefix for revoked token IDs in BadgerDB storage.
const revokedKeyPrefix = "revoked:"

// RevocationStore records token IDs that were invalidated before their
// natural expiry, typically by logout. Entries only need to live until
// the token itself expires.
type RevocationStore interface {
	// Revoke marks a token ID as invalid until expiresAt.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsRevoked reports whether a token ID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// NewRevocationStore selects a store backend from the configured path.
// An empty path selects the in-memory store, which forgets revocations
// on restart; a non-empty path opens a BadgerDB store there.
func NewRevocationStore(path string, logger zerolog.Logger) (RevocationStore, error) {
	if path == "" {
		logger.Info().Msg("Using in-memory token revocation store")
		return NewMemoryRevocationStore(), nil
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open revocation store at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Opened BadgerDB token revocation store")
	return NewBadgerRevocationStore(db), nil
}

// MemoryRevocationStore is an in-memory implementation of
// RevocationStore. Suitable for development and single-node setups
// where losing revocations on restart is acceptable.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore creates an empty in-memory store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
	}
}

// Revoke marks a token ID as invalid until expiresAt.
func (s *MemoryRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[tokenID] = expiresAt

	// Sweep expired entries opportunistically to bound the map.
	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked.
func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return exp.After(time.Now()), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryRevocationStore) Close() error { return nil }

// BadgerRevocationStore implements RevocationStore using BadgerDB for
// durable storage. Entries carry a TTL matching the token expiry so
// Badger garbage-collects them without an explicit sweep.
type BadgerRevocationStore struct {
	db *badger.DB
}

// NewBadgerRevocationStore creates a BadgerDB-backed revocation store.
func NewBadgerRevocationStore(db *badger.DB) *BadgerRevocationStore {
	return &BadgerRevocationStore{db: db}
}

// Revoke marks a token ID as invalid until expiresAt.
func (s *BadgerRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired; nothing to record.
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(revokedKeyPrefix + tokenID)
		entry := badger.NewEntry(key, []byte{1}).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set revocation: %w", err)
		}
		return nil
	})
}

// IsRevoked reports whether a token ID has been revoked.
func (s *BadgerRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := s.db.View(func(txn *badger.Txn) error {
		key := []byte(revokedKeyPrefix + tokenID)
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get revocation: %w", err)
		}
		revoked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// Close closes the underlying BadgerDB handle.
func (s *BadgerRevocationStore) Close() error {
	return s.db.Close()
}
