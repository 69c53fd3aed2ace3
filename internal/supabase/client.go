// Package supabase talks to the Supabase auth API (magic link delivery and access token verification)
package supabase

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

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrInvalidToken is returned when Supabase does not accept an access token
var ErrInvalidToken = errors.New("invalid access token")

// User represents the user a Supabase access token belongs to
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client represents a Supabase auth API client
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// New creates a new Supabase auth API client for the given project URL and anonymous key
func New(baseURL, anonKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: http.DefaultClient,
	}
}

type otpRequest struct {
	Email      string `json:"email"`
	CreateUser bool   `json:"create_user"`
}

// SendMagicLink sends a sign-in link to the given email address.
// The link redirects to redirectTo once used.
func (client *Client) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	body, err := json.Marshal(&otpRequest{Email: email, CreateUser: true})
	if err != nil {
		return err
	}

	address := client.baseURL + "/auth/v1/otp"
	if len(query) > 0 {
		address += "?" + query.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("apikey", client.anonKey)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return readError(response)
	}
	log.Debug().Str("email", email).Msg("sent magic link")
	return nil
}

// User resolves the user an access token belongs to.
// Returns ErrInvalidToken if Supabase rejects the token.
func (client *Client) User(ctx context.Context, accessToken string) (*User, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("apikey", client.anonKey)

	authenticated := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   client.httpClient.Transport,
		},
	}
	response, err := authenticated.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, readError(response)
	}

	user := new(User)
	if err := json.NewDecoder(response.Body).Decode(user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func readError(response *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
	payload := struct {
		Message          string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}{}
	_ = json.Unmarshal(raw, &payload)
	message := payload.Message
	if message == "" {
		message = payload.ErrorDescription
	}
	return fmt.Errorf("supabase answered HTTP %d: %s", response.StatusCode, message)
}
