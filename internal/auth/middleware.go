// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// Middleware resolves the current user from the Authorization header
// and stores the token claims in the request context.
type Middleware struct {
	jwt     *JWTManager
	revoked RevocationStore
	logger  zerolog.Logger
}

// NewMiddleware creates authentication middleware backed by the given
// token manager and revocation store.
func NewMiddleware(jwt *JWTManager, revoked RevocationStore, logger zerolog.Logger) *Middleware {
	return &Middleware{
		jwt:     jwt,
		revoked: revoked,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

// Require rejects requests without a valid, unrevoked bearer token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.resolve(r)
		if !ok {
			writeUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// Optional resolves the current user when a valid token is present and
// passes the request through anonymously otherwise. Handlers that
// tailor responses to the viewer but serve anonymous traffic use this.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := m.resolve(r); ok {
			r = r.WithContext(withClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// resolve extracts and validates the bearer token, checking revocation.
func (m *Middleware) resolve(r *http.Request) (*Claims, bool) {
	token := bearerToken(r)
	if token == "" {
		return nil, false
	}

	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Token validation failed")
		return nil, false
	}

	revoked, err := m.revoked.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		m.logger.Error().Err(err).Msg("Revocation check failed")
		return nil, false
	}
	if revoked {
		m.logger.Debug().Str("user_id", claims.UserID).Msg("Rejected revoked token")
		return nil, false
	}

	return claims, true
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the token claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user's ID, or the empty
// string for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}

// writeUnauthorized writes a 401 response in the API error envelope.
// The auth package cannot import the api package, so the payload is
// built here.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
