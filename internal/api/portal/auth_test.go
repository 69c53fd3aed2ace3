package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/milhasrod/gateway/internal/identity"
)

func newTestOIDCVerifier(t *testing.T, userinfo http.HandlerFunc) *OIDCVerifier {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"issuer":                 server.URL,
			"authorization_endpoint": server.URL + "/authorize",
			"token_endpoint":         server.URL + "/token",
			"jwks_uri":               server.URL + "/jwks",
			"userinfo_endpoint":      server.URL + "/userinfo",
		})
	})
	mux.HandleFunc("/userinfo", userinfo)
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider, err := oidc.NewProvider(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("could not create provider: %v", err)
	}
	return &OIDCVerifier{Provider: provider}
}

func TestOIDCVerifierResolvesIdentity(t *testing.T) {
	verifier := newTestOIDCVerifier(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`{"sub":"user-1","email":"one@example.com"}`))
	})

	ident, err := verifier.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.UserID != "user-1" || ident.Email != "one@example.com" || ident.Token != "tok" {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestOIDCVerifierRejectedToken(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		verifier := newTestOIDCVerifier(t, func(rw http.ResponseWriter, _ *http.Request) {
			rw.WriteHeader(code)
		})

		_, err := verifier.Verify(context.Background(), "tok")
		if !errors.Is(err, identity.ErrNoSession) {
			t.Fatalf("expected ErrNoSession for %d, got %v", code, err)
		}
	}
}

func TestOIDCVerifierOutage(t *testing.T) {
	verifier := newTestOIDCVerifier(t, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := verifier.Verify(context.Background(), "tok")
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, identity.ErrNoSession) {
		t.Fatal("a provider outage must not be reported as a rejected token")
	}
}
