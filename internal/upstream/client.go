package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// StatusError is returned whenever the API answers with a non-2xx status code
type StatusError struct {
	Code    int
	Message string
}

func (err *StatusError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("HTTP %d: %s", err.Code, http.StatusText(err.Code))
	}
	return fmt.Sprintf("HTTP %d: %s", err.Code, err.Message)
}

// RejectedError is returned when the API answers successfully but reports '"success": false'
type RejectedError struct {
	Operation string
	Message   string
}

func (err *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", err.Operation, err.Message)
}

// IsStatus reports whether err is a StatusError carrying the given status code
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

// Client talks to the MilhasRod API (credits ledger, flight search, trip details, airports and Stripe checkout)
type Client struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
}

// Option configures a Client
type Option func(client *Client)

// WithTransport sets the transport used for all requests
func WithTransport(transport http.RoundTripper) Option {
	return func(client *Client) {
		client.transport = transport
	}
}

// WithTimeout sets a client-side timeout for every request.
// Zero (the default) leaves timeouts to the transport.
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		client.timeout = timeout
	}
}

// New creates a new API client for the given base URL
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// httpClient builds an HTTP client attaching token as a bearer token to every request
func (client *Client) httpClient(token string) *http.Client {
	transport := client.transport
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   client.transport,
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   client.timeout,
	}
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs a single API request and decodes the JSON response into target (if not nil)
func (client *Client) do(ctx context.Context, token, method, endpoint string, query url.Values, body, target interface{}) error {
	address := client.baseURL + endpoint
	if len(query) > 0 {
		address += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, address, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	response, err := client.httpClient(token).Do(request)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("upstream request failed")
		return err
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", response.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream request")

	if response.StatusCode < 200 || response.StatusCode > 299 {
		payload := new(errorPayload)
		_ = json.Unmarshal(raw, payload)
		message := payload.Error
		if message == "" {
			message = payload.Message
		}
		return &StatusError{Code: response.StatusCode, Message: message}
	}

	if target != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return nil
}

// Status retrieves the status document of the API
func (client *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	status := make(map[string]interface{})
	if err := client.do(ctx, "", http.MethodGet, "/api/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}
