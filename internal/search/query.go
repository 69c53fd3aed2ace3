package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout every start date has to follow
const DateLayout = "2006-01-02"

const (
	// MinDays is the smallest accepted search window
	MinDays = 1
	// MaxDays is the largest accepted search window
	MaxDays = 14
)

// Cabins holds the recognised cabin letters (economy, premium economy, business, first)
var Cabins = []string{"Y", "W", "J", "F"}

// Programs holds the recognised mileage programs usable as a source filter
var Programs = []string{
	"american",
	"alaska",
	"aeroplan",
	"delta",
	"united",
	"smiles",
	"flyingblue",
	"qatar",
	"virginatlantic",
	"etihad",
	"azul",
	"turkish",
	"connectmiles",
}

// ValidationError is returned when a query does not satisfy the search constraints.
// A query failing validation never reaches the ledger or the search API.
type ValidationError struct {
	Field   string
	Message string
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Message)
}

// Query represents the parameters of a single flight search
type Query struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date"`
	Days        int      `json:"days"`
	Cabins      []string `json:"cabins"`
	Sources     []string `json:"sources"`
}

// Normalize trims and upper-cases the airport codes and removes duplicate cabins and sources
func (query *Query) Normalize() {
	query.Origin = strings.ToUpper(strings.TrimSpace(query.Origin))
	query.Destination = strings.ToUpper(strings.TrimSpace(query.Destination))
	query.StartDate = strings.TrimSpace(query.StartDate)
	query.Cabins = dedupe(query.Cabins, strings.ToUpper)
	query.Sources = dedupe(query.Sources, strings.ToLower)
}

// Validate checks the query against the search constraints and reports the first violation
func (query *Query) Validate() error {
	if strings.TrimSpace(query.Origin) == "" {
		return &ValidationError{Field: "origin", Message: "at least one origin airport is required"}
	}
	if strings.TrimSpace(query.Destination) == "" {
		return &ValidationError{Field: "destination", Message: "at least one destination airport is required"}
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(query.StartDate)); err != nil {
		return &ValidationError{Field: "start_date", Message: "start date must follow the YYYY-MM-DD format"}
	}
	if query.Days < MinDays || query.Days > MaxDays {
		return &ValidationError{
			Field:   "days",
			Message: fmt.Sprintf("day count must be between %d and %d (given %d)", MinDays, MaxDays, query.Days),
		}
	}
	if len(query.Cabins) == 0 {
		return &ValidationError{Field: "cabins", Message: "at least one cabin has to be selected"}
	}
	for _, cabin := range query.Cabins {
		if !contains(Cabins, strings.ToUpper(cabin)) {
			return &ValidationError{Field: "cabins", Message: fmt.Sprintf("unknown cabin '%s'", cabin)}
		}
	}
	for _, source := range query.Sources {
		if !contains(Programs, strings.ToLower(source)) {
			return &ValidationError{Field: "sources", Message: fmt.Sprintf("unknown program '%s'", source)}
		}
	}
	return nil
}

// Values maps the query onto the query parameters understood by the search API
func (query *Query) Values() url.Values {
	values := url.Values{}
	values.Set("origin_airports", query.Origin)
	values.Set("destination_airports", query.Destination)
	values.Set("start_date", query.StartDate)
	values.Set("days_to_search", strconv.Itoa(query.Days))
	values.Set("cabins", strings.Join(query.Cabins, ","))
	if len(query.Sources) > 0 {
		values.Set("sources", strings.Join(query.Sources, ","))
	}
	return values
}

func dedupe(values []string, transform func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = transform(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func contains(set []string, value string) bool {
	for _, item := range set {
		if item == value {
			return true
		}
	}
	return false
}
