// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestPQErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantUnique bool
		wantFK     bool
	}{
		{
			name:       "unique violation",
			err:        &pq.Error{Code: "23505"},
			wantUnique: true,
		},
		{
			name:   "foreign key violation",
			err:    &pq.Error{Code: "23503"},
			wantFK: true,
		},
		{
			// Liking a deleted video surfaces wrapped; the classifiers
			// must see through the wrapping.
			name:   "wrapped foreign key violation",
			err:    fmt.Errorf("insert likes: %w", &pq.Error{Code: "23503"}),
			wantFK: true,
		},
		{
			name: "other pq error",
			err:  &pq.Error{Code: "42601"},
		},
		{
			name: "non-pq error",
			err:  errors.New("connection refused"),
		},
		{
			name: "nil",
			err:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.wantUnique {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.wantUnique)
			}
			if got := isForeignKeyViolation(tt.err); got != tt.wantFK {
				t.Errorf("isForeignKeyViolation() = %v, want %v", got, tt.wantFK)
			}
		})
	}
}
