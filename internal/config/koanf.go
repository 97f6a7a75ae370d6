// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vireo/config.yaml",
	"/etc/vireo/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8460,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			URL:             "",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Migrate:         true,
		},
		Security: SecurityConfig{
			JWTSecret:        "",
			SessionTimeout:   24 * time.Hour,
			SessionStorePath: "",
			BcryptCost:       10,
		},
		Recommender: RecommenderConfig{
			URL:         "",
			APIKey:      "",
			Timeout:     5 * time.Second,
			RateLimit:   50,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			URL:        "",
			Timeout:    5 * time.Second,
			VideoIndex: "videos",
			UserIndex:  "users",
		},
		ObjectStore: ObjectStoreConfig{
			TicketExpiry:   time.Hour,
			MaxUploadBytes: 1 << 30, // 1 GiB
		},
		Feed: FeedConfig{
			PageSize:     5,
			FetchTimeout: 10 * time.Second,
		},
		Events: EventsConfig{
			NATSEnabled:   false,
			URL:           "nats://127.0.0.1:4222",
			Embedded:      false,
			StoreDir:      "/data/nats/jetstream",
			Stream:        "FEEDBACK",
			SubjectPrefix: "feedback",
			RetryCount:    3,
			RetryInterval: 100 * time.Millisecond,
			PoisonTopic:   "feedback.poison",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration using Koanf v2 with layered sources:
//
//  1. Defaults from struct
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or empty.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for known
// slice fields. Env vars arrive as strings; YAML values are already slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// The platform's historical variable names are mapped explicitly; anything
// else translates SECTION_FIELD to section.field.
//
// Examples:
//   - DATABASE_URL -> database.url
//   - GORSE_URL -> recommender.url
//   - ES_URL -> search.url
//   - SERVER_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"database_url": "database.url",

		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"cors_origins": "server.cors_origins",

		"jwt_secret":         "security.jwt_secret",
		"session_timeout":    "security.session_timeout",
		"session_store_path": "security.session_store_path",

		"gorse_url":     "recommender.url",
		"gorse_api_key": "recommender.api_key",

		"es_url": "search.url",

		"oss_region":            "object_store.region",
		"oss_bucket":            "object_store.bucket",
		"oss_access_key_id":     "object_store.access_key_id",
		"oss_access_key_secret": "object_store.access_key_secret",
		"static_files_base_url": "object_store.public_base_url",

		"nats_enabled":  "events.nats_enabled",
		"nats_url":      "events.url",
		"nats_embedded": "events.embedded",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Generic SECTION_FIELD -> section.field for known sections.
	for _, section := range []string{
		"server", "database", "security", "recommender", "search",
		"object_store", "feed", "events", "logging",
	} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}

	// Unknown variables are ignored by returning an empty path.
	return ""
}
