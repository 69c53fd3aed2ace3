package search

import (
	"errors"
	"testing"
	"time"
)

func validQuery() *Query {
	return &Query{
		Origin:      "gru",
		Destination: " lis ",
		StartDate:   "2026-11-02",
		Days:        7,
		Cabins:      []string{"Y", "J"},
	}
}

func TestValidateAcceptsValidQuery(t *testing.T) {
	if err := validQuery().Validate(); err != nil {
		t.Fatalf("expected valid query, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Query)
		field  string
	}{
		{"empty origin", func(q *Query) { q.Origin = "  " }, "origin"},
		{"empty destination", func(q *Query) { q.Destination = "" }, "destination"},
		{"unparseable date", func(q *Query) { q.StartDate = "02/11/2026" }, "start_date"},
		{"impossible date", func(q *Query) { q.StartDate = "2026-02-31" }, "start_date"},
		{"zero days", func(q *Query) { q.Days = 0 }, "days"},
		{"fifteen days", func(q *Query) { q.Days = 15 }, "days"},
		{"no cabins", func(q *Query) { q.Cabins = nil }, "cabins"},
		{"unknown cabin", func(q *Query) { q.Cabins = []string{"X"} }, "cabins"},
		{"unknown program", func(q *Query) { q.Sources = []string{"lufthansa"} }, "sources"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			query := validQuery()
			test.mutate(query)

			err := query.Validate()
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if validationErr.Field != test.field {
				t.Fatalf("expected field %q, got %q", test.field, validationErr.Field)
			}
		})
	}
}

func TestValidateDayBounds(t *testing.T) {
	for _, days := range []int{MinDays, MaxDays} {
		query := validQuery()
		query.Days = days
		if err := query.Validate(); err != nil {
			t.Fatalf("expected %d days to be accepted, got %v", days, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	query := &Query{
		Origin:      " gru ",
		Destination: "lis",
		StartDate:   " 2026-11-02 ",
		Cabins:      []string{"y", "Y", " j", ""},
		Sources:     []string{"Smiles", "smiles", "AZUL"},
	}
	query.Normalize()

	if query.Origin != "GRU" || query.Destination != "LIS" {
		t.Fatalf("unexpected airports %q -> %q", query.Origin, query.Destination)
	}
	if query.StartDate != "2026-11-02" {
		t.Fatalf("unexpected start date %q", query.StartDate)
	}
	if len(query.Cabins) != 2 || query.Cabins[0] != "Y" || query.Cabins[1] != "J" {
		t.Fatalf("unexpected cabins %v", query.Cabins)
	}
	if len(query.Sources) != 2 || query.Sources[0] != "smiles" || query.Sources[1] != "azul" {
		t.Fatalf("unexpected sources %v", query.Sources)
	}
}

func TestValues(t *testing.T) {
	query := validQuery()
	query.Normalize()
	values := query.Values()

	expected := map[string]string{
		"origin_airports":      "GRU",
		"destination_airports": "LIS",
		"start_date":           "2026-11-02",
		"days_to_search":       "7",
		"cabins":               "Y,J",
	}
	for key, want := range expected {
		if got := values.Get(key); got != want {
			t.Errorf("%s: expected %q, got %q", key, want, got)
		}
	}
	if values.Has("sources") {
		t.Error("an empty program filter must not send 'sources'")
	}

	query.Sources = []string{"smiles", "azul"}
	if got := query.Values().Get("sources"); got != "smiles,azul" {
		t.Errorf("expected sources 'smiles,azul', got %q", got)
	}
}

func TestReferenceGeneratorNeverRepeats(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	gen := &ReferenceGenerator{now: func() time.Time { return frozen }}

	first := gen.Next()
	second := gen.Next()
	if first == second {
		t.Fatalf("expected distinct references, got %q twice", first)
	}
	if first != "search_1700000000000" || second != "search_1700000000001" {
		t.Fatalf("unexpected references %q, %q", first, second)
	}
}

func TestReferenceGeneratorFollowsClock(t *testing.T) {
	current := time.UnixMilli(1_000)
	gen := &ReferenceGenerator{now: func() time.Time { return current }}

	gen.Next()
	current = time.UnixMilli(5_000)
	if ref := gen.Next(); ref != "search_5000" {
		t.Fatalf("expected reference to follow the clock, got %q", ref)
	}
}
