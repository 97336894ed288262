// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package validation

import (
	"strings"
	"testing"
)

type sessionRequest struct {
	UserID string `validate:"required"`
	Intent string `validate:"omitempty,meal_intent"`
	Count  int    `validate:"omitempty,min=1,max=25"`
}

type feedbackRequest struct {
	ItemID string `validate:"required"`
	Type   string `validate:"required,feedback_type"`
	Course string `validate:"omitempty,course"`
}

func TestValidateStructSuccess(t *testing.T) {
	tests := []struct {
		name string
		s    interface{}
	}{
		{"session request", sessionRequest{UserID: "u1", Intent: "full_meal", Count: 5}},
		{"optional fields empty", sessionRequest{UserID: "u1"}},
		{"feedback request", feedbackRequest{ItemID: "i1", Type: "like", Course: "main"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verr := ValidateStruct(tt.s); verr != nil {
				t.Errorf("ValidateStruct() = %v, want nil", verr)
			}
		})
	}
}

func TestValidateStructFailures(t *testing.T) {
	tests := []struct {
		name      string
		s         interface{}
		wantField string
		wantTag   string
	}{
		{"missing user id", sessionRequest{Intent: "full_meal"}, "UserID", "required"},
		{"bad intent", sessionRequest{UserID: "u1", Intent: "brunch"}, "Intent", "meal_intent"},
		{"count too high", sessionRequest{UserID: "u1", Count: 100}, "Count", "max"},
		{"bad feedback type", feedbackRequest{ItemID: "i1", Type: "meh"}, "Type", "feedback_type"},
		{"bad course", feedbackRequest{ItemID: "i1", Type: "like", Course: "amuse-bouche"}, "Course", "course"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.s)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("len(Errors()) = %d, want 1", len(errs))
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("got field=%s tag=%s, want field=%s tag=%s",
					errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	verr := ValidateStruct(sessionRequest{})
	if verr == nil {
		t.Fatal("expected a validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %s, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "required") {
		t.Errorf("Message = %q, want mention of required", apiErr.Message)
	}
	if apiErr.Details["field"] != "UserID" {
		t.Errorf("Details.field = %v, want UserID", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	verr := ValidateStruct(feedbackRequest{Type: "meh", Course: "nope"})
	if verr == nil {
		t.Fatal("expected validation errors")
	}
	if len(verr.Errors()) < 2 {
		t.Fatalf("len(Errors()) = %d, want at least 2", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %s, want VALIDATION_ERROR", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details.fields = %T, want field list", apiErr.Details["fields"])
	}
	if len(fields) != len(verr.Errors()) {
		t.Errorf("len(fields) = %d, want %d", len(fields), len(verr.Errors()))
	}
}

func TestErrorMessageJoinsFields(t *testing.T) {
	verr := ValidateStruct(feedbackRequest{Type: "meh", Course: "nope"})
	if verr == nil {
		t.Fatal("expected validation errors")
	}

	msg := verr.Error()
	for _, want := range []string{"ItemID", "feedback type", "course"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want mention of %q", msg, want)
		}
	}
}
