package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/milhasrod/gateway/internal/credits"
	"github.com/milhasrod/gateway/internal/search"
)

// Search performs a flight search.
// An HTTP 402 answer (the API double-checking credits on its own) is reported as credits.ErrPaymentRequired.
func (client *Client) Search(ctx context.Context, token string, query *search.Query) (*search.Result, error) {
	result := new(search.Result)
	if err := client.do(ctx, token, http.MethodGet, "/api/search", query.Values(), nil, result); err != nil {
		if IsStatus(err, http.StatusPaymentRequired) {
			return nil, fmt.Errorf("%w: %w", credits.ErrPaymentRequired, err)
		}
		return nil, err
	}
	return result, nil
}

// Trip retrieves the trip details of a single availability
func (client *Client) Trip(ctx context.Context, token, availabilityID string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("id", availabilityID)

	var trip json.RawMessage
	if err := client.do(ctx, token, http.MethodGet, "/api/trips", query, nil, &trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// Airports looks up airports matching the given term (autocomplete)
func (client *Client) Airports(ctx context.Context, token, term string) (json.RawMessage, error) {
	query := url.Values{}
	if term != "" {
		query.Set("q", term)
	}

	var airports json.RawMessage
	if err := client.do(ctx, token, http.MethodGet, "/api/airports", query, nil, &airports); err != nil {
		return nil, err
	}
	return airports, nil
}
