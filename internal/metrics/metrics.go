// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package metrics provides Prometheus instrumentation for the server:
// HTTP endpoints, PostgreSQL queries, feed sessions, the feedback event
// pipeline and the outbound recommender/search clients.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postgres_query_duration_seconds",
			Help:    "Duration of PostgreSQL queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgres_query_errors_total",
			Help: "Total number of PostgreSQL query errors",
		},
		[]string{"operation", "table"},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "postgres_connections_in_use",
			Help: "Current number of database connections in use",
		},
	)

	// Feed Session Metrics
	FeedSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_sessions_active",
			Help: "Current number of active feed sessions",
		},
	)

	FeedPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_pages_fetched_total",
			Help: "Total number of feed pages fetched",
		},
		[]string{"result"}, // "success", "failure"
	)

	FeedFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Duration of feed page fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Feedback Event Pipeline Metrics
	FeedbackPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_events_published_total",
			Help: "Total number of feedback events published to the bus",
		},
		[]string{"kind"}, // "STARTED", "FINISHED", "like", ...
	)

	FeedbackForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_events_forwarded_total",
			Help: "Total number of feedback events forwarded to the recommender",
		},
	)

	FeedbackPoisoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_events_poisoned_total",
			Help: "Total number of feedback events parked on the poison queue",
		},
	)

	FeedbackProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedback_processing_duration_seconds",
			Help:    "Duration of feedback event handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Outbound Client Metrics (recommender, search)
	ClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_requests_total",
			Help: "Total number of outbound client requests",
		},
		[]string{"client", "operation", "result"}, // result: "success", "failure", "rejected"
	)

	ClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Outbound client request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"client", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"}, // "read", "write", "decode"
	)

	// Upload Ticket Metrics
	UploadTicketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_tickets_issued_total",
			Help: "Total number of signed upload tickets issued",
		},
		[]string{"category"}, // "avatar", "video", "cover"
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDBQuery records a database query with duration and error status.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordFeedFetch records one feed page fetch.
func RecordFeedFetch(duration time.Duration, err error) {
	FeedFetchDuration.Observe(duration.Seconds())
	if err != nil {
		FeedPagesFetched.WithLabelValues("failure").Inc()
		return
	}
	FeedPagesFetched.WithLabelValues("success").Inc()
}

// RecordClientRequest records an outbound recommender/search call.
func RecordClientRequest(client, operation string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ClientRequestsTotal.WithLabelValues(client, operation, result).Inc()
	ClientRequestDuration.WithLabelValues(client, operation).Observe(duration.Seconds())
}

// RecordClientRejected records a call rejected by an open circuit breaker.
func RecordClientRejected(client, operation string) {
	ClientRequestsTotal.WithLabelValues(client, operation, "rejected").Inc()
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
