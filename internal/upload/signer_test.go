// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package upload

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testSigner() *Signer {
	s := NewSigner(Config{
		Region:          "oss-cn-hangzhou",
		Bucket:          "vireo-media",
		AccessKeyID:     "test-key-id",
		AccessKeySecret: "test-key-secret",
		TicketExpiry:    time.Hour,
		MaxUploadBytes:  1 << 30,
	})
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return s
}

func TestIssueTicketFields(t *testing.T) {
	ticket, err := testSigner().Issue(CategoryVideo)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if ticket.AccessKeyID != "test-key-id" {
		t.Errorf("AccessKeyID = %q", ticket.AccessKeyID)
	}
	if !strings.HasPrefix(ticket.Key, "video/") {
		t.Errorf("Key = %q, want video/ prefix", ticket.Key)
	}
	if ticket.Host != "https://vireo-media.oss-cn-hangzhou.aliyuncs.com" {
		t.Errorf("Host = %q", ticket.Host)
	}
	if ticket.PublicURL != ticket.Host+"/"+ticket.Key {
		t.Errorf("PublicURL = %q", ticket.PublicURL)
	}
}

func TestIssuePolicyConditions(t *testing.T) {
	ticket, err := testSigner().Issue(CategoryAvatar)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ticket.Policy)
	if err != nil {
		t.Fatalf("policy not base64: %v", err)
	}

	var policy struct {
		Expiration string          `json:"expiration"`
		Conditions [][]interface{} `json:"conditions"`
	}
	if err := json.Unmarshal(raw, &policy); err != nil {
		t.Fatalf("policy not JSON: %v", err)
	}

	exp, err := time.Parse("2006-01-02T15:04:05.000Z", policy.Expiration)
	if err != nil {
		t.Fatalf("expiration format: %v", err)
	}
	want := time.Date(2026, 3, 14, 10, 26, 53, 0, time.UTC)
	if !exp.Equal(want) {
		t.Errorf("expiration = %v, want %v (1h after issue)", exp, want)
	}

	if len(policy.Conditions) != 2 {
		t.Fatalf("conditions = %v, want 2 entries", policy.Conditions)
	}

	lenRange := policy.Conditions[0]
	if lenRange[0] != "content-length-range" {
		t.Errorf("conditions[0] = %v", lenRange)
	}
	if max, _ := lenRange[2].(float64); int64(max) != 1<<30 {
		t.Errorf("max upload bytes = %v, want %d", lenRange[2], int64(1)<<30)
	}

	prefixCond := policy.Conditions[1]
	if prefixCond[0] != "starts-with" || prefixCond[1] != "$key" || prefixCond[2] != "avatar" {
		t.Errorf("conditions[1] = %v, want starts-with $key avatar", prefixCond)
	}
}

func TestIssueSignature(t *testing.T) {
	ticket, err := testSigner().Issue(CategoryCover)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	mac := hmac.New(sha1.New, []byte("test-key-secret"))
	mac.Write([]byte(ticket.Policy))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if ticket.Signature != want {
		t.Errorf("Signature = %q, want %q", ticket.Signature, want)
	}
}

func TestIssueUnknownCategory(t *testing.T) {
	if _, err := testSigner().Issue(Category("document")); err == nil {
		t.Error("Issue(document) = nil error, want error")
	}
}

func TestPublicBaseURLOverride(t *testing.T) {
	s := testSigner()
	s.cfg.PublicBaseURL = "https://cdn.example.com"

	ticket, err := s.Issue(CategoryVideo)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !strings.HasPrefix(ticket.PublicURL, "https://cdn.example.com/video/") {
		t.Errorf("PublicURL = %q", ticket.PublicURL)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range []Category{CategoryAvatar, CategoryVideo, CategoryCover} {
		if !c.Valid() {
			t.Errorf("%q.Valid() = false", c)
		}
	}
	if Category("").Valid() {
		t.Error(`Category("").Valid() = true`)
	}
}
