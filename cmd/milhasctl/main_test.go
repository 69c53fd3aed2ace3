package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/milhasrod/gateway/internal/guard"
	"github.com/milhasrod/gateway/internal/search"
)

func TestDescribe(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not authenticated", guard.ErrNotAuthenticated, "not logged in"},
		{"insufficient credits", guard.ErrInsufficientCredits, "not enough credits"},
		{"spend failed", &guard.SpendFailedError{Ref: "search_1", Cause: cause}, "could not spend credits (ref search_1)"},
		{"refunded", &guard.SearchFailedError{Ref: "search_2", Cause: cause}, "your credit was refunded (ref search_2)"},
		{"refund uncertain", &guard.SearchFailedError{Ref: "search_3", Cause: cause, RefundUncertain: true}, "refund could not be confirmed (ref search_3)"},
		{"other", cause, "boom"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := describe(test.err); !strings.Contains(got, test.want) {
				t.Fatalf("expected %q to contain %q", got, test.want)
			}
		})
	}
}

func TestAvailabilityDetails(t *testing.T) {
	result := &search.Result{
		CheapestDays: []*search.Day{
			{Date: "2026-11-02", AvailabilityID: "a1"},
			{Date: "2026-11-03", AvailabilityID: "missing"},
			{Date: "2026-11-04"},
		},
		AllAvailability: json.RawMessage(`[{"availability_id": "a1", "miles": 70000}]`),
	}

	lines := availabilityDetails(result)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if lines[0] != `a1: {"availability_id":"a1","miles":70000}` {
		t.Errorf("unexpected detail line %q", lines[0])
	}
	if lines[1] != "missing: no details available" {
		t.Errorf("unexpected detail line %q", lines[1])
	}
}
