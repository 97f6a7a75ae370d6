// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vireo-app/vireo/internal/logging"
)

func testMiddleware(t *testing.T) (*Middleware, *JWTManager, RevocationStore) {
	t.Helper()
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	store := NewMemoryRevocationStore()
	mw := NewMiddleware(m, store, logging.NewTestLogger(io.Discard))
	return mw, m, store
}

func echoUserHandler(t *testing.T, gotUser *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUser = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRejectsMissingToken(t *testing.T) {
	mw, _, _ := testMiddleware(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer"},
		{"garbage token", "Bearer not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			var gotUser string
			mw.Require(echoUserHandler(t, &gotUser)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if !strings.Contains(rec.Body.String(), "UNAUTHORIZED") {
				t.Errorf("body %q missing error code", rec.Body.String())
			}
		})
	}
}

func TestRequirePassesValidToken(t *testing.T) {
	mw, m, _ := testMiddleware(t)

	token, err := m.GenerateToken("user-7", "bob")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var gotUser string
	mw.Require(echoUserHandler(t, &gotUser)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUser != "user-7" {
		t.Errorf("user ID = %q, want %q", gotUser, "user-7")
	}
}

func TestRequireRejectsRevokedToken(t *testing.T) {
	mw, m, store := testMiddleware(t)

	token, err := m.GenerateToken("user-7", "bob")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if err := store.Revoke(context.Background(), claims.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var gotUser string
	mw.Require(echoUserHandler(t, &gotUser)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestOptionalAllowsAnonymous(t *testing.T) {
	mw, m, _ := testMiddleware(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	var gotUser string
	mw.Optional(echoUserHandler(t, &gotUser)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUser != "" {
		t.Errorf("anonymous request resolved user %q", gotUser)
	}

	// With a token, the same chain resolves the user.
	token, err := m.GenerateToken("user-9", "carol")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()

	mw.Optional(echoUserHandler(t, &gotUser)).ServeHTTP(rec, req)
	if gotUser != "user-9" {
		t.Errorf("user ID = %q, want %q", gotUser, "user-9")
	}
}

func TestClaimsFromContextMissing(t *testing.T) {
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Error("empty context reported claims")
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("UserIDFromContext = %q, want empty", got)
	}
}
