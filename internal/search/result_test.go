package search

import (
	"encoding/json"
	"testing"
)

func TestPremiumOnly(t *testing.T) {
	result := &Result{CheapestDays: []*Day{
		{Date: "2026-11-02", Cabin: "Y"},
		{Date: "2026-11-03", Cabin: "J"},
		{Date: "2026-11-04", Cabin: "first"},
	}}

	premium := result.PremiumOnly()
	if len(premium.CheapestDays) != 2 {
		t.Fatalf("expected 2 premium days, got %d", len(premium.CheapestDays))
	}
	if len(result.CheapestDays) != 3 {
		t.Fatal("the original result must not be modified")
	}
}

func TestAvailabilityIndexFromList(t *testing.T) {
	result := &Result{AllAvailability: json.RawMessage(`[{"availability_id":"a1"},{"id":"a2"},{"foo":1}]`)}
	index := result.AvailabilityIndex()
	if len(index) != 2 {
		t.Fatalf("expected 2 indexed entries, got %d", len(index))
	}
	if _, ok := index["a1"]; !ok {
		t.Error("expected a1 to be indexed")
	}
	if _, ok := index["a2"]; !ok {
		t.Error("expected a2 to be indexed by its plain id")
	}
}

func TestAvailabilityIndexFromObject(t *testing.T) {
	result := &Result{AllAvailability: json.RawMessage(`{"x":{"miles":1000},"y":{"miles":2000}}`)}
	if index := result.AvailabilityIndex(); len(index) != 2 {
		t.Fatalf("expected 2 indexed entries, got %d", len(index))
	}
}

func TestEmpty(t *testing.T) {
	var result Result
	if err := json.Unmarshal([]byte(`{"cheapest_days":[]}`), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Empty() {
		t.Fatal("expected result to be empty")
	}
}
