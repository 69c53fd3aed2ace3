package validation

import (
	"net/http/httptest"
	"strings"
	"testing"
)

type testPayload struct {
	Name  *string  `json:"name" required:"true"`
	Days  *int     `json:"days" required:"true" min:"1" max:"14"`
	Tags  []string `json:"tags"`
	Inner *struct {
		Count int `json:"count" min:"0" max:"3"`
	} `json:"inner"`
}

func TestUnmarshalBodyValid(t *testing.T) {
	request := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","days":14}`))
	payload, errs, err := UnmarshalBody[testPayload](httptest.NewRecorder(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %d (%s)", len(errs), errs[0].Type)
	}
	if *payload.Name != "x" || *payload.Days != 14 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestUnmarshalBodyMissingAndOutOfRange(t *testing.T) {
	request := httptest.NewRequest("POST", "/", strings.NewReader(`{"days":15,"inner":{"count":4}}`))
	_, errs, err := UnmarshalBody[testPayload](httptest.NewRecorder(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	types := make(map[string]string)
	for _, e := range errs {
		types[e.Details["parameter"].(string)] = e.Type
	}
	if types["name"] != "validation.requestBody.parameter.missing" {
		t.Errorf("expected 'name' to be reported missing, got %q", types["name"])
	}
	if types["days"] != "validation.requestBody.parameter.number.outOfRange" {
		t.Errorf("expected 'days' to be out of range, got %q", types["days"])
	}
	if types["inner.count"] != "validation.requestBody.parameter.number.outOfRange" {
		t.Errorf("expected 'inner.count' to be out of range, got %q", types["inner.count"])
	}
}

func TestUnmarshalBodyInvalidJSON(t *testing.T) {
	request := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	_, errs, err := UnmarshalBody[testPayload](httptest.NewRecorder(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) != 1 || errs[0].Type != "validation.requestBody.invalidJSON" {
		t.Fatalf("expected an invalid JSON error, got %+v", errs)
	}
}

func TestUnmarshalBodyInvalidType(t *testing.T) {
	request := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","days":"seven"}`))
	_, errs, err := UnmarshalBody[testPayload](httptest.NewRecorder(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) != 1 || errs[0].Type != "validation.requestBody.parameter.invalidType" {
		t.Fatalf("expected an invalid type error, got %+v", errs)
	}
}

func TestQueryNumber(t *testing.T) {
	request := httptest.NewRequest("GET", "/?limit=500&offset=abc", nil)

	if value, err := QueryNumber(request, "missing", false, 30, 1, 100); err != nil || value != 30 {
		t.Fatalf("expected the default value, got %d (%v)", value, err)
	}
	if _, err := QueryNumber(request, "missing", true, 0, 0, 1); err == nil || err.Type != "validation.query.parameter.missing" {
		t.Fatalf("expected a missing parameter error, got %+v", err)
	}
	if _, err := QueryNumber(request, "limit", false, 30, 1, 100); err == nil || err.Type != "validation.query.parameter.number.outOfRange" {
		t.Fatalf("expected an out of range error, got %+v", err)
	}
	if _, err := QueryNumber(request, "offset", false, 0, 0, 100); err == nil || err.Type != "validation.query.parameter.invalidType" {
		t.Fatalf("expected an invalid type error, got %+v", err)
	}
}

func TestQueryString(t *testing.T) {
	request := httptest.NewRequest("GET", "/?q=+lis+&long=abcdef", nil)

	if value, err := QueryString(request, "q", true, 10); err != nil || value != "lis" {
		t.Fatalf("expected trimmed value 'lis', got %q (%v)", value, err)
	}
	if _, err := QueryString(request, "long", false, 3); err == nil {
		t.Fatal("expected a too long error")
	}
}
