// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package validation

import (
	"strings"
	"testing"
)

type registerRequest struct {
	Username string `validate:"required,username"`
	Password string `validate:"required,min=6,max=72"`
}

func TestValidateStructOK(t *testing.T) {
	req := registerRequest{Username: "alice_01", Password: "correct-horse"}
	if verr := ValidateStruct(&req); verr != nil {
		t.Errorf("ValidateStruct() = %v, want nil", verr)
	}
}

func TestValidateStructUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantOK   bool
	}{
		{"simple", "alice", true},
		{"digits and hyphen", "user-42", true},
		{"single char", "a", false},
		{"leading underscore", "_alice", false},
		{"spaces", "al ice", false},
		{"too long", strings.Repeat("a", 25), false},
		{"max length", strings.Repeat("a", 24), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerRequest{Username: tt.username, Password: "hunter2x"}
			verr := ValidateStruct(&req)
			if (verr == nil) != tt.wantOK {
				t.Errorf("ValidateStruct(%q) error = %v, wantOK %v", tt.username, verr, tt.wantOK)
			}
		})
	}
}

func TestValidateStructSingleError(t *testing.T) {
	req := registerRequest{Username: "alice", Password: "abc"}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if got := len(verr.Errors()); got != 1 {
		t.Fatalf("Errors() length = %d, want 1", got)
	}

	fe := verr.Errors()[0]
	if fe.Field() != "Password" || fe.Tag() != "min" {
		t.Errorf("field/tag = %s/%s, want Password/min", fe.Field(), fe.Tag())
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "at least 6 characters") {
		t.Errorf("Message = %q, want min-length wording", apiErr.Message)
	}
	if apiErr.Details["field"] != "Password" {
		t.Errorf("Details[field] = %v, want Password", apiErr.Details["field"])
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	req := registerRequest{}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if got := len(verr.Errors()); got != 2 {
		t.Fatalf("Errors() length = %d, want 2", got)
	}

	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T", apiErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("fields length = %d, want 2", len(fields))
	}
	if !strings.Contains(apiErr.Message, ";") {
		t.Errorf("Message = %q, want combined message", apiErr.Message)
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}
