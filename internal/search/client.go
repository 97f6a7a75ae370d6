// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package search indexes and queries video and user documents against an
// Elasticsearch-compatible HTTP API.
//
// The index is a secondary projection of the database: documents are written
// on create and removed on delete, and queries return only IDs which callers
// hydrate from the database. Index write failures are surfaced to callers so
// they can decide whether the operation is fatal (it usually is not).
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/metrics"
)

// VideoDocument is the indexed shape of a video.
type VideoDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// UserDocument is the indexed shape of a user.
type UserDocument struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// Indexer writes documents to the search index.
type Indexer interface {
	IndexVideo(ctx context.Context, doc VideoDocument) error
	DeleteVideo(ctx context.Context, id string) error
	IndexUser(ctx context.Context, doc UserDocument) error
	DeleteUser(ctx context.Context, id string) error
}

// Searcher queries the index and returns matching document IDs ranked by
// relevance.
type Searcher interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]string, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]string, error)
}

// Config holds the search client settings.
type Config struct {
	URL        string
	Timeout    time.Duration
	VideoIndex string
	UserIndex  string
}

// Client talks to an Elasticsearch-compatible API. It implements both
// Indexer and Searcher and is safe for concurrent use.
type Client struct {
	baseURL    string
	videoIndex string
	userIndex  string
	client     *http.Client
	logger     zerolog.Logger
}

// NewClient creates a search client from config.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.VideoIndex == "" {
		cfg.VideoIndex = "videos"
	}
	if cfg.UserIndex == "" {
		cfg.UserIndex = "users"
	}
	return &Client{
		baseURL:    cfg.URL,
		videoIndex: cfg.VideoIndex,
		userIndex:  cfg.UserIndex,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "search").Logger(),
	}
}

// IndexVideo upserts a video document.
func (c *Client) IndexVideo(ctx context.Context, doc VideoDocument) error {
	return c.indexDoc(ctx, c.videoIndex, doc.ID, doc)
}

// DeleteVideo removes a video document. Missing documents are not an error.
func (c *Client) DeleteVideo(ctx context.Context, id string) error {
	return c.deleteDoc(ctx, c.videoIndex, id)
}

// IndexUser upserts a user document.
func (c *Client) IndexUser(ctx context.Context, doc UserDocument) error {
	return c.indexDoc(ctx, c.userIndex, doc.ID, doc)
}

// DeleteUser removes a user document. Missing documents are not an error.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.deleteDoc(ctx, c.userIndex, id)
}

// SearchVideos returns up to limit video IDs matching query, best first.
func (c *Client) SearchVideos(ctx context.Context, query string, limit int) ([]string, error) {
	return c.search(ctx, c.videoIndex, query, []string{"title", "description", "tags"}, limit)
}

// SearchUsers returns up to limit user IDs matching query, best first.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]string, error) {
	return c.search(ctx, c.userIndex, query, []string{"name", "bio"}, limit)
}

func (c *Client) indexDoc(ctx context.Context, index, id string, doc interface{}) error {
	start := time.Now()
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("search: encode document: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/_doc/%s", c.baseURL, index, url.PathEscape(id))
	err = c.do(ctx, http.MethodPut, reqURL, body, nil)
	metrics.RecordClientRequest("search", "index", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("search: index %s/%s: %w", index, id, err)
	}
	return nil
}

func (c *Client) deleteDoc(ctx context.Context, index, id string) error {
	start := time.Now()
	reqURL := fmt.Sprintf("%s/%s/_doc/%s", c.baseURL, index, url.PathEscape(id))
	err := c.do(ctx, http.MethodDelete, reqURL, nil, nil)
	metrics.RecordClientRequest("search", "delete", time.Since(start), err)
	if err != nil {
		// A 404 means the document was never indexed or already removed.
		var se *statusError
		if asStatusError(err, &se) && se.code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("search: delete %s/%s: %w", index, id, err)
	}
	return nil
}

// searchRequest is the _search query body: a multi-field full-text match.
type searchRequest struct {
	Size  int `json:"size"`
	Query struct {
		MultiMatch struct {
			Query  string   `json:"query"`
			Fields []string `json:"fields"`
		} `json:"multi_match"`
	} `json:"query"`
	Source bool `json:"_source"`
}

// searchResponse carries only what we read back: hit IDs in rank order.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *Client) search(ctx context.Context, index, query string, fields []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	var reqBody searchRequest
	reqBody.Size = limit
	reqBody.Query.MultiMatch.Query = query
	reqBody.Query.MultiMatch.Fields = fields
	reqBody.Source = false

	body, err := json.Marshal(&reqBody)
	if err != nil {
		return nil, fmt.Errorf("search: encode query: %w", err)
	}

	start := time.Now()
	var result searchResponse
	reqURL := fmt.Sprintf("%s/%s/_search", c.baseURL, index)
	err = c.do(ctx, http.MethodPost, reqURL, body, &result)
	metrics.RecordClientRequest("search", "search", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("search: query %s: %w", index, err)
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// statusError carries a non-2xx HTTP response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func asStatusError(err error, target **statusError) bool {
	se, ok := err.(*statusError)
	if ok {
		*target = se
	}
	return ok
}

// do performs one request and decodes the JSON response into result when
// result is non-nil.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, result interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(data)}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
