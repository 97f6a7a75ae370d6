// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/config"
)

// Router assembles the full HTTP surface.
type Router struct {
	handlers *Handlers
	authMW   *auth.Middleware
	cfg      config.ServerConfig
	logger   zerolog.Logger

	// sessionWS serves the websocket feed-session endpoint. Nil disables
	// the route.
	sessionWS http.Handler
}

// NewRouter creates a Router. sessionWS may be nil.
func NewRouter(handlers *Handlers, authMW *auth.Middleware, cfg config.ServerConfig, sessionWS http.Handler, logger zerolog.Logger) *Router {
	return &Router{
		handlers:  handlers,
		authMW:    authMW,
		cfg:       cfg,
		logger:    logger,
		sessionWS: sessionWS,
	}
}

// Setup wires every route and middleware into a chi router.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers

	// Global middleware, applied to all routes in order.
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Recoverer(rt.logger))
	r.Use(RequestLogger(rt.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Operational endpoints stay outside the rate limit.
	r.Get("/healthz", h.HealthLive)
	r.Get("/readyz", h.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))

		// Authentication.
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.With(rt.authMW.Require).Post("/auth/logout", h.Logout)

		// Feed. Anonymous callers get the latest-videos feed.
		r.With(rt.authMW.Optional).Get("/feed", h.Feed)

		// Videos.
		r.Route("/videos", func(r chi.Router) {
			r.With(rt.authMW.Require).Post("/", h.CreateVideo)
			r.Get("/search", h.SearchVideos)
			r.Get("/{id}", h.GetVideo)
			r.With(rt.authMW.Require).Delete("/{id}", h.DeleteVideo)
			r.With(rt.authMW.Optional).Get("/{id}/stats", h.VideoStats)

			r.With(rt.authMW.Require).Post("/{id}/like", h.LikeVideo)
			r.With(rt.authMW.Require).Delete("/{id}/like", h.UnlikeVideo)
			r.With(rt.authMW.Require).Post("/{id}/collect", h.CollectVideo)
			r.With(rt.authMW.Require).Delete("/{id}/collect", h.UncollectVideo)

			r.With(rt.authMW.Optional).Get("/{id}/comments", h.ListComments)
			r.With(rt.authMW.Require).Post("/{id}/comments", h.PostComment)
			r.With(rt.authMW.Require).Delete("/{id}/comments/{commentID}", h.DeleteComment)
			r.With(rt.authMW.Require).Post("/{id}/comments/{commentID}/vote", h.VoteComment)

			r.With(rt.authMW.Require).Post("/{id}/views/started", h.StartedView)
			r.With(rt.authMW.Require).Post("/{id}/views/finished", h.FinishedView)
		})

		// Users.
		r.Route("/users", func(r chi.Router) {
			r.Get("/search", h.SearchUsers)
			r.With(rt.authMW.Require).Get("/me", h.Me)
			r.With(rt.authMW.Require).Put("/me", h.UpdateProfile)
			r.With(rt.authMW.Require).Get("/me/likes", h.LikedVideos)
			r.With(rt.authMW.Require).Get("/me/collections", h.CollectedVideos)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/videos", h.UserVideos)
		})

		// View history.
		r.With(rt.authMW.Require).Get("/histories", h.Histories)
		r.With(rt.authMW.Require).Delete("/histories/{videoID}", h.DeleteHistory)

		// Signed upload tickets.
		r.With(rt.authMW.Require).Post("/uploads/{category}", h.UploadTicket)

		// Feed session websocket.
		if rt.sessionWS != nil {
			r.With(rt.authMW.Optional).Method(http.MethodGet, "/session/ws", rt.sessionWS)
		}
	})

	return r
}

// Server builds the http.Server for the assembled router.
func (rt *Router) Server() *http.Server {
	timeout := rt.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              rt.cfg.Addr(),
		Handler:           rt.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		// WriteTimeout stays unset: the websocket session endpoint holds
		// its connection open far beyond any request timeout.
		IdleTimeout: 2 * timeout,
	}
}
