// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package config provides centralized configuration for all Vireo components.
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority
// wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml)
//  3. Environment variables
//
// The environment surface keeps the variable names the platform has always
// used (DATABASE_URL, GORSE_URL, ES_URL, OSS_* ...) alongside the nested
// SECTION_FIELD form derived from the struct tags.
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Security    SecurityConfig    `koanf:"security"`
	Recommender RecommenderConfig `koanf:"recommender"`
	Search      SearchConfig      `koanf:"search"`
	ObjectStore ObjectStoreConfig `koanf:"object_store"`
	Feed        FeedConfig        `koanf:"feed"`
	Events      EventsConfig      `koanf:"events"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Listen address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8460)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow.
	// Zero disables rate limiting.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings.
//
// Environment Variables:
//   - DATABASE_URL: PostgreSQL connection URL (required)
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required,url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// Migrate runs pending schema migrations on startup.
	Migrate bool `koanf:"migrate"`
}

// SecurityConfig holds authentication settings.
//
// Environment Variables:
//   - JWT_SECRET: 32+ character secret for token signing (required)
//   - SESSION_TIMEOUT: Token lifetime (default: 24h)
//   - SESSION_STORE_PATH: BadgerDB directory for revoked-token storage
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret" validate:"required,min=32"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// SessionStorePath is the BadgerDB directory backing token revocation.
	// Empty selects an in-memory store (tokens revive on restart).
	SessionStorePath string `koanf:"session_store_path"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `koanf:"bcrypt_cost" validate:"min=4,max=31"`
}

// RecommenderConfig holds settings for the external recommendation service
// (a Gorse-compatible HTTP API).
//
// Environment Variables:
//   - GORSE_URL: Recommender base URL (required)
//   - GORSE_API_KEY: Optional API key
type RecommenderConfig struct {
	URL     string        `koanf:"url" validate:"required,url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit caps outbound requests per second; zero disables the cap.
	RateLimit float64 `koanf:"rate_limit"`

	// Circuit breaker: open after MaxFailures consecutive failures, probe
	// again after OpenTimeout.
	MaxFailures uint32        `koanf:"max_failures"`
	OpenTimeout time.Duration `koanf:"open_timeout"`
}

// SearchConfig holds settings for the external search index
// (an Elasticsearch-compatible HTTP API).
//
// Environment Variables:
//   - ES_URL: Search index base URL (required)
type SearchConfig struct {
	URL     string        `koanf:"url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"`

	// VideoIndex and UserIndex name the two document indexes.
	VideoIndex string `koanf:"video_index"`
	UserIndex  string `koanf:"user_index"`
}

// ObjectStoreConfig holds credentials for signing direct-to-bucket uploads.
// Uploads never pass through this server; clients POST directly to the
// bucket endpoint with a ticket signed here.
//
// Environment Variables:
//   - OSS_REGION, OSS_BUCKET: Bucket location
//   - OSS_ACCESS_KEY_ID, OSS_ACCESS_KEY_SECRET: Signing credentials
//   - STATIC_FILES_BASE_URL: Public base URL for uploaded objects
type ObjectStoreConfig struct {
	Region          string `koanf:"region" validate:"required"`
	Bucket          string `koanf:"bucket" validate:"required"`
	AccessKeyID     string `koanf:"access_key_id" validate:"required"`
	AccessKeySecret string `koanf:"access_key_secret" validate:"required"`

	// PublicBaseURL serves uploaded objects. Empty derives the bucket
	// endpoint URL.
	PublicBaseURL string `koanf:"public_base_url"`

	// TicketExpiry bounds how long a signed upload ticket stays valid.
	TicketExpiry time.Duration `koanf:"ticket_expiry"`

	// MaxUploadBytes caps a single upload (applies to video-class uploads).
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// FeedConfig holds feed session settings.
type FeedConfig struct {
	// PageSize is the number of videos per feed page.
	PageSize int `koanf:"page_size" validate:"min=1,max=50"`

	// FetchTimeout bounds a single feed page fetch inside a session.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
}

// EventsConfig holds the feedback event pipeline settings.
//
// Environment Variables:
//   - NATS_ENABLED: Use NATS JetStream instead of the in-process bus
//   - NATS_URL: NATS server URL
//   - NATS_EMBEDDED: Run an embedded NATS server
type EventsConfig struct {
	// NATSEnabled selects the NATS JetStream transport. When false the
	// pipeline runs on an in-process Go-channel bus (single node).
	NATSEnabled bool `koanf:"nats_enabled"`

	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`

	// Stream and SubjectPrefix name the JetStream stream and its subjects.
	Stream        string `koanf:"stream"`
	SubjectPrefix string `koanf:"subject_prefix"`

	// RetryCount and RetryInterval configure router redelivery before a
	// message is parked on the poison queue.
	RetryCount    int           `koanf:"retry_count"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	PoisonTopic   string        `koanf:"poison_topic"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
