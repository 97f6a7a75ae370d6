// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package upload issues signed tickets for direct-to-bucket uploads.
//
// The server never proxies file bytes. A client asks for a ticket, receives
// the POST-policy form fields, and uploads straight to the object store.
// The policy constrains what the ticket can be used for: a key under the
// requested category prefix, a bounded content length, and a hard expiry.
package upload

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Category classifies what an upload ticket may be used for. The category
// doubles as the object key prefix inside the bucket.
type Category string

const (
	CategoryAvatar Category = "avatar"
	CategoryVideo  Category = "video"
	CategoryCover  Category = "cover"
)

// Valid reports whether c is a known upload category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAvatar, CategoryVideo, CategoryCover:
		return true
	}
	return false
}

// Ticket holds the form fields a client needs for a policy-signed POST
// upload. Field names follow the bucket API's form conventions.
type Ticket struct {
	AccessKeyID string `json:"OSSAccessKeyId"`
	Policy      string `json:"policy"`
	Signature   string `json:"Signature"`
	Key         string `json:"key"`
	Host        string `json:"host"`

	// PublicURL is where the object will be served once uploaded.
	PublicURL string `json:"publicUrl"`
}

// Config holds the signing credentials and policy limits.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string

	// PublicBaseURL serves uploaded objects. Empty derives the bucket
	// endpoint URL.
	PublicBaseURL string

	// TicketExpiry bounds ticket validity.
	TicketExpiry time.Duration

	// MaxUploadBytes caps the content-length-range condition.
	MaxUploadBytes int64
}

// Signer issues upload tickets. Safe for concurrent use.
type Signer struct {
	cfg Config
	now func() time.Time
}

// NewSigner returns a Signer for the given credentials and limits.
func NewSigner(cfg Config) *Signer {
	if cfg.TicketExpiry <= 0 {
		cfg.TicketExpiry = time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 1 << 30
	}
	return &Signer{cfg: cfg, now: time.Now}
}

// postPolicy is the JSON document that gets base64-encoded and signed.
type postPolicy struct {
	Expiration string          `json:"expiration"`
	Conditions [][]interface{} `json:"conditions"`
}

// Issue creates a ticket allowing one upload under the category prefix.
//
// The policy allows any key starting with the category prefix rather than
// pinning the exact key: the suggested key carries a millisecond timestamp,
// and clients that retry may regenerate their own suffix.
func (s *Signer) Issue(category Category) (*Ticket, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("upload: unknown category %q", category)
	}

	now := s.now()
	prefix := string(category)
	key := fmt.Sprintf("%s/%d", prefix, now.UnixMilli())

	policy := postPolicy{
		Expiration: now.Add(s.cfg.TicketExpiry).UTC().Format("2006-01-02T15:04:05.000Z"),
		Conditions: [][]interface{}{
			{"content-length-range", int64(0), s.cfg.MaxUploadBytes},
			{"starts-with", "$key", prefix},
		},
	}

	raw, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("upload: encode policy: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	mac := hmac.New(sha1.New, []byte(s.cfg.AccessKeySecret))
	mac.Write([]byte(encoded))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return &Ticket{
		AccessKeyID: s.cfg.AccessKeyID,
		Policy:      encoded,
		Signature:   signature,
		Key:         key,
		Host:        s.endpoint(),
		PublicURL:   s.publicURL(key),
	}, nil
}

// endpoint returns the bucket's virtual-host upload endpoint.
func (s *Signer) endpoint() string {
	return fmt.Sprintf("https://%s.%s.aliyuncs.com", s.cfg.Bucket, s.cfg.Region)
}

// publicURL returns the serving URL for an object key.
func (s *Signer) publicURL(key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = s.endpoint()
	}
	return base + "/" + key
}
