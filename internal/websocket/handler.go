// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package websocket carries a feed session over one websocket
// connection. The client streams visibility and progress events; the
// server runs the session state machine and pushes window snapshots and
// playback commands back. View feedback leaves through the event
// pipeline and is never awaited on this path.
package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/feedsession"
	"github.com/vireo-app/vireo/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// sendBuffer bounds queued outbound messages. A client that cannot
	// keep up loses snapshots rather than stalling the session loop.
	sendBuffer = 256
)

// FetcherProvider builds the per-session feed page fetcher.
type FetcherProvider interface {
	SessionFetcher(userID, seedID string) feedsession.Fetcher
}

// SinkProvider builds the per-session feedback sink.
type SinkProvider interface {
	SessionSink(userID, sessionID string) feedsession.FeedbackSink
}

// Config holds the session transport settings.
type Config struct {
	// PageSize is the feed window page size.
	PageSize int

	// FetchTimeout bounds a single page fetch inside a session.
	FetchTimeout time.Duration

	// CheckOrigin overrides the upgrade origin check. Nil accepts all
	// origins; cross-origin abuse is bounded by token auth on the routes
	// that matter.
	CheckOrigin func(r *http.Request) bool
}

// Handler upgrades HTTP requests into feed-session connections.
type Handler struct {
	fetchers FetcherProvider
	sinks    SinkProvider
	cfg      Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates the session endpoint handler.
func NewHandler(fetchers FetcherProvider, sinks SinkProvider, cfg Config, logger zerolog.Logger) *Handler {
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		fetchers: fetchers,
		sinks:    sinks,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

// ServeHTTP upgrades the connection and runs a session until the client
// disconnects. The seed query parameter deep-links a shared video to
// the head of the feed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug().Err(err).Msg("Upgrade failed")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	seedID := r.URL.Query().Get("seed")
	sessionID := uuid.New().String()

	c := &sessionConn{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan ServerMessage, sendBuffer),
		logger: h.logger.With().
			Str("session_id", sessionID).
			Str("user_id", userID).
			Logger(),
	}

	session := feedsession.NewSession(feedsession.Config{
		PageSize:     h.cfg.PageSize,
		Fetcher:      h.fetchers.SessionFetcher(userID, seedID),
		Surfaces:     newRemoteSurfaceProvider(c.enqueue),
		Sink:         h.sinks.SessionSink(userID, sessionID),
		Listener:     feedsession.ListenerFunc(c.onSnapshot),
		Logger:       c.logger,
		FetchTimeout: h.cfg.FetchTimeout,
	})

	metrics.WSConnections.Inc()
	metrics.FeedSessionsActive.Inc()
	c.logger.Info().Msg("Session connected")

	ctx, cancel := context.WithCancel(r.Context())
	go session.Run(ctx)
	go c.writePump(cancel)
	c.readPump(session)

	cancel()
	metrics.WSConnections.Dec()
	metrics.FeedSessionsActive.Dec()
	c.logger.Info().Msg("Session disconnected")
}

// sessionConn owns one websocket connection. readPump is the only
// reader, writePump the only writer.
type sessionConn struct {
	conn      *websocket.Conn
	sessionID string
	send      chan ServerMessage
	logger    zerolog.Logger
}

// enqueue queues an outbound message without ever blocking the session
// loop. A full buffer drops the message; snapshots are self-contained
// so a later one supersedes whatever was lost.
func (c *sessionConn) enqueue(msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
		metrics.WSErrors.WithLabelValues("write").Inc()
		c.logger.Warn().Str("type", msg.Type).Msg("Send buffer full, dropping message")
	}
}

func (c *sessionConn) onSnapshot(snap feedsession.Snapshot) {
	c.enqueue(ServerMessage{Type: MessageTypeSnapshot, Snapshot: &snap})
}

// readPump decodes client events and feeds them into the session. It
// returns when the connection dies.
func (c *sessionConn) readPump(session *feedsession.Session) {
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				c.logger.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		switch msg.Type {
		case MessageTypeVisibility:
			session.Observe(msg.Batch)
		case MessageTypeProgress:
			session.Progress(msg.VideoID, msg.Elapsed, msg.Duration)
		case MessageTypeMute:
			session.SetMuted(msg.Muted)
		default:
			metrics.WSErrors.WithLabelValues("decode").Inc()
			c.logger.Debug().Str("type", msg.Type).Msg("Unknown message type")
		}
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings.
func (c *sessionConn) writePump(cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
