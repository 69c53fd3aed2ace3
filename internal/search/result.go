package search

import (
	"encoding/json"
	"strings"
)

// Result represents the payload returned by the search API
type Result struct {
	CheapestDays    []*Day          `json:"cheapest_days"`
	AllAvailability json.RawMessage `json:"all_availability,omitempty"`
}

// Day represents the cheapest availability found for a single day
type Day struct {
	Date           string `json:"date"`
	Cabin          string `json:"cabin"`
	Source         string `json:"source"`
	MileageCost    int64  `json:"mileage_cost"`
	AvailabilityID string `json:"availabilityId"`
}

// IsPremium returns whether the day refers to a business or first class cabin
func (day *Day) IsPremium() bool {
	switch strings.ToUpper(day.Cabin) {
	case "J", "F", "BUSINESS", "FIRST":
		return true
	default:
		return false
	}
}

// Empty returns whether the search found no availability at all
func (result *Result) Empty() bool {
	return len(result.CheapestDays) == 0
}

// PremiumOnly returns a copy of the result containing only premium cabin days
func (result *Result) PremiumOnly() *Result {
	days := make([]*Day, 0, len(result.CheapestDays))
	for _, day := range result.CheapestDays {
		if day.IsPremium() {
			days = append(days, day)
		}
	}
	return &Result{
		CheapestDays:    days,
		AllAvailability: result.AllAvailability,
	}
}

// AvailabilityIndex indexes the raw availability entries by their availability ID.
// The search API returns either a list of objects carrying 'availability_id' (or 'id') or an object keyed by ID.
func (result *Result) AvailabilityIndex() map[string]json.RawMessage {
	index := make(map[string]json.RawMessage)
	if len(result.AllAvailability) == 0 {
		return index
	}

	var list []json.RawMessage
	if err := json.Unmarshal(result.AllAvailability, &list); err == nil {
		for _, raw := range list {
			var ids struct {
				AvailabilityID string `json:"availability_id"`
				ID             string `json:"id"`
			}
			if err := json.Unmarshal(raw, &ids); err != nil {
				continue
			}
			key := ids.AvailabilityID
			if key == "" {
				key = ids.ID
			}
			if key != "" {
				index[key] = raw
			}
		}
		return index
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(result.AllAvailability, &keyed); err == nil {
		for key, raw := range keyed {
			index[key] = raw
		}
	}
	return index
}
