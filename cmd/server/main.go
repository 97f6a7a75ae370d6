// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package main is the entry point for the Vireo server.
//
// Vireo is a short-video platform backend: a personalized feed with
// server-driven playback orchestration, view feedback that loops back into
// the recommender, and the REST surface around it (accounts, videos, likes,
// comments, search, upload tickets).
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML, environment)
//  2. Database: PostgreSQL pool plus embedded golang-migrate migrations
//  3. Auth: JWT manager, bcrypt hasher, BadgerDB token revocation store
//  4. External services: recommender (Gorse API), search index (ES API),
//     object-store upload signer
//  5. Feedback pipeline: Watermill bus (in-process channels or NATS
//     JetStream, optionally embedded) with the consumer router
//  6. HTTP: chi router, REST handlers, websocket feed sessions
//  7. Supervisor tree: suture supervises the event and API layers
//
// # Feedback Pipeline
//
// View events (STARTED, FINISHED) flow from feed sessions and the REST
// endpoints through the bus to a router that records watch history and
// forwards feedback to the recommender. With NATS_ENABLED=true the bus is
// JetStream-backed and survives restarts; NATS_EMBEDDED=true runs the NATS
// server inside this process for single-binary deployments.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP server
// drains in-flight requests, the router finishes in-flight messages, and
// the supervisor reports anything that failed to stop within the timeout.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vireo-app/vireo/internal/api"
	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/config"
	"github.com/vireo-app/vireo/internal/database"
	"github.com/vireo-app/vireo/internal/events"
	"github.com/vireo-app/vireo/internal/feed"
	"github.com/vireo-app/vireo/internal/logging"
	"github.com/vireo-app/vireo/internal/recommend"
	"github.com/vireo-app/vireo/internal/search"
	"github.com/vireo-app/vireo/internal/supervisor"
	"github.com/vireo-app/vireo/internal/supervisor/services"
	"github.com/vireo-app/vireo/internal/upload"
	ws "github.com/vireo-app/vireo/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("nats_enabled", cfg.Events.NATSEnabled).
		Msg("Starting Vireo")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.Migrate {
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			logging.Fatal().Err(err).Msg("Failed to run migrations")
		}
		logging.Info().Msg("Migrations applied")
	}

	db, err := database.Open(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	users := database.NewUserRepo(db)
	videos := database.NewVideoRepo(db)
	likes := database.NewLikeRepo(db)
	comments := database.NewCommentRepo(db)
	histories := database.NewHistoryRepo(db)

	revoked, err := auth.NewRevocationStore(cfg.Security.SessionStorePath, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open revocation store")
	}
	defer func() {
		if err := revoked.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing revocation store")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	hasher := auth.NewPasswordHasher(cfg.Security.BcryptCost)

	recommender := recommend.NewClient(recommend.Config{
		URL:         cfg.Recommender.URL,
		APIKey:      cfg.Recommender.APIKey,
		Timeout:     cfg.Recommender.Timeout,
		RateLimit:   cfg.Recommender.RateLimit,
		MaxFailures: cfg.Recommender.MaxFailures,
		OpenTimeout: cfg.Recommender.OpenTimeout,
	}, logging.Logger())

	searchClient := search.NewClient(search.Config{
		URL:        cfg.Search.URL,
		Timeout:    cfg.Search.Timeout,
		VideoIndex: cfg.Search.VideoIndex,
		UserIndex:  cfg.Search.UserIndex,
	}, logging.Logger())

	signer := upload.NewSigner(upload.Config{
		Region:          cfg.ObjectStore.Region,
		Bucket:          cfg.ObjectStore.Bucket,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		AccessKeySecret: cfg.ObjectStore.AccessKeySecret,
		PublicBaseURL:   cfg.ObjectStore.PublicBaseURL,
		TicketExpiry:    cfg.ObjectStore.TicketExpiry,
		MaxUploadBytes:  cfg.ObjectStore.MaxUploadBytes,
	})

	feedSvc := feed.NewService(recommender, videos, cfg.Feed.PageSize, logging.Logger())

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	bus, embeddedNATS, err := initBus(ctx, cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	if embeddedNATS != nil {
		tree.AddEventService(services.NewNATSServerService(embeddedNATS, 10*time.Second))
		logging.Info().Str("url", embeddedNATS.ClientURL()).Msg("Embedded NATS server added to supervisor tree")
	}

	feedbackTopic := cfg.Events.SubjectPrefix + ".views"
	wmLogger := events.NewWatermillLogger(logging.Logger())
	publisher := events.NewFeedbackPublisher(bus.Publisher, feedbackTopic, logging.Logger())

	eventRouter, err := events.NewRouter(events.RouterConfig{
		Topic:         feedbackTopic,
		PoisonTopic:   cfg.Events.PoisonTopic,
		RetryCount:    cfg.Events.RetryCount,
		RetryInterval: cfg.Events.RetryInterval,
	}, bus, recommender, histories, wmLogger, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build feedback router")
	}
	tree.AddEventService(services.NewRouterService(eventRouter))

	sessionWS := ws.NewHandler(feedSvc, publisher, ws.Config{
		PageSize:     cfg.Feed.PageSize,
		FetchTimeout: cfg.Feed.FetchTimeout,
	}, logging.Logger())

	handlers := api.NewHandlers(api.HandlersConfig{
		Users:       users,
		Videos:      videos,
		Likes:       likes,
		Comments:    comments,
		Histories:   histories,
		Search:      searchClient,
		Recommender: recommender,
		Feed:        feedSvc,
		Feedback:    publisher,
		Tickets:     signer,
		JWT:         jwtManager,
		Password:    hasher,
		Revoked:     revoked,
		ReadyProbe:  db.PingContext,
		Logger:      logging.Logger(),
	})

	authMW := auth.NewMiddleware(jwtManager, revoked, logging.Logger())
	router := api.NewRouter(handlers, authMW, cfg.Server, sessionWS, logging.Logger())
	server := router.Server()

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped gracefully")
}

// initBus builds the feedback transport. With NATS enabled it optionally
// starts an embedded server, ensures the JetStream stream exists, and
// connects a JetStream-backed bus; otherwise it returns the in-process
// channel bus.
func initBus(ctx context.Context, cfg config.EventsConfig) (*events.Bus, *events.EmbeddedServer, error) {
	wmLogger := events.NewWatermillLogger(logging.Logger())

	if !cfg.NATSEnabled {
		logging.Info().Msg("Using in-process event bus (single node)")
		return events.NewChannelBus(wmLogger), nil, nil
	}

	var embedded *events.EmbeddedServer
	natsURL := cfg.URL
	if cfg.Embedded {
		srv, err := events.NewEmbeddedServer(events.EmbeddedServerConfig{
			StoreDir: cfg.StoreDir,
		})
		if err != nil {
			return nil, nil, err
		}
		embedded = srv
		natsURL = srv.ClientURL()
	}

	streamCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	streamCfg := events.DefaultStreamConfig(cfg.Stream, cfg.SubjectPrefix)
	if err := events.EnsureStream(streamCtx, natsURL, streamCfg); err != nil {
		return nil, nil, err
	}

	bus, err := events.NewNATSBus(events.NATSConfig{URL: natsURL}, wmLogger)
	if err != nil {
		return nil, nil, err
	}
	logging.Info().Str("url", natsURL).Str("stream", cfg.Stream).Msg("Connected to NATS JetStream")
	return bus, embedded, nil
}
