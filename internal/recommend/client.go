// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package recommend talks to the external recommendation service over its
// Gorse-compatible HTTP API.
//
// The recommender receives item registrations and user feedback, and serves
// ranked item IDs per user. All calls run behind a circuit breaker and a
// client-side rate limit: the recommender is an enhancement, not a
// dependency, and callers are expected to fall back (usually to latest
// videos) when it is unavailable.
package recommend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/vireo-app/vireo/internal/metrics"
)

// FeedbackType mirrors the recommender's feedback vocabulary.
type FeedbackType string

const (
	// FeedbackLike records an explicit like.
	FeedbackLike FeedbackType = "like"
	// FeedbackRead records that playback started.
	FeedbackRead FeedbackType = "read"
	// FeedbackReadAll records that playback effectively completed.
	FeedbackReadAll FeedbackType = "readall"
)

// ErrUnavailable is returned when the circuit breaker rejects a call.
var ErrUnavailable = errors.New("recommend: service unavailable")

// Recommender is the interface the rest of the server depends on.
type Recommender interface {
	InsertFeedback(ctx context.Context, userID, itemID string, kind FeedbackType) error
	DeleteFeedback(ctx context.Context, userID, itemID string, kind FeedbackType) error
	InsertItem(ctx context.Context, itemID string, categories []string) error
	DeleteItem(ctx context.Context, itemID string) error
	Recommend(ctx context.Context, userID string, n, offset int) ([]string, error)
}

// Config holds recommender client settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration

	// RateLimit caps outbound requests per second; zero disables the cap.
	RateLimit float64

	// MaxFailures consecutive failures open the breaker; OpenTimeout is
	// the cool-off before a probe.
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Client implements Recommender against a Gorse-compatible API. Safe for
// concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
	logger  zerolog.Logger
}

const breakerName = "recommender"

// NewClient creates a recommender client from config.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	log := logger.With().Str("component", "recommend").Logger()

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    breakerName,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("recommender circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}

	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: limiter,
		logger:  log,
	}
}

// feedbackRecord is the recommender's feedback payload element.
type feedbackRecord struct {
	FeedbackType string `json:"FeedbackType"`
	UserID       string `json:"UserId"`
	ItemID       string `json:"ItemId"`
	Timestamp    string `json:"Timestamp"`
}

// InsertFeedback records one feedback event for a user and item.
func (c *Client) InsertFeedback(ctx context.Context, userID, itemID string, kind FeedbackType) error {
	records := []feedbackRecord{{
		FeedbackType: string(kind),
		UserID:       userID,
		ItemID:       itemID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("recommend: encode feedback: %w", err)
	}
	_, err = c.call(ctx, "insert_feedback", http.MethodPost, "/api/feedback", body, nil)
	return err
}

// DeleteFeedback removes previously recorded feedback (e.g. an unlike).
func (c *Client) DeleteFeedback(ctx context.Context, userID, itemID string, kind FeedbackType) error {
	path := fmt.Sprintf("/api/feedback/%s/%s/%s",
		url.PathEscape(string(kind)), url.PathEscape(userID), url.PathEscape(itemID))
	_, err := c.call(ctx, "delete_feedback", http.MethodDelete, path, nil, nil)
	return err
}

// itemRecord is the recommender's item payload.
type itemRecord struct {
	ItemID     string   `json:"ItemId"`
	Categories []string `json:"Categories,omitempty"`
	Labels     []string `json:"Labels,omitempty"`
	Timestamp  string   `json:"Timestamp"`
}

// InsertItem registers a video with the recommender. Categories come from
// the video's tags.
func (c *Client) InsertItem(ctx context.Context, itemID string, categories []string) error {
	body, err := json.Marshal(itemRecord{
		ItemID:     itemID,
		Categories: categories,
		Labels:     categories,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("recommend: encode item: %w", err)
	}
	_, err = c.call(ctx, "insert_item", http.MethodPost, "/api/item", body, nil)
	return err
}

// DeleteItem removes a video from the recommender.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	path := "/api/item/" + url.PathEscape(itemID)
	_, err := c.call(ctx, "delete_item", http.MethodDelete, path, nil, nil)
	return err
}

// Recommend returns up to n item IDs for the user, skipping offset entries.
func (c *Client) Recommend(ctx context.Context, userID string, n, offset int) ([]string, error) {
	if n <= 0 {
		n = 10
	}
	path := fmt.Sprintf("/api/recommend/%s?n=%d&offset=%d", url.PathEscape(userID), n, offset)

	var ids []string
	if _, err := c.call(ctx, "recommend", http.MethodGet, path, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// call performs one API call behind the rate limiter and circuit breaker,
// optionally decoding the response body into result.
func (c *Client) call(ctx context.Context, operation, method, path string, body []byte, result interface{}) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("recommend: rate limit wait: %w", err)
		}
	}

	start := time.Now()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordClientRejected("gorse", operation)
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, operation)
		}
		metrics.RecordClientRequest("gorse", operation, time.Since(start), err)
		return nil, fmt.Errorf("recommend: %s: %w", operation, err)
	}
	metrics.RecordClientRequest("gorse", operation, time.Since(start), nil)

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return nil, fmt.Errorf("recommend: %s: decode response: %w", operation, err)
		}
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(data), 256))
	}
	return data, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
