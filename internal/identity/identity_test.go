package identity

import (
	"context"
	"errors"
	"testing"
)

func TestContextProvider(t *testing.T) {
	provider := ContextProvider{}

	if _, err := provider.Current(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	ctx := WithSession(context.Background(), &Session{Token: "tok", UserID: "u1"})
	session, err := provider.Current(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.UserID != "u1" {
		t.Fatalf("expected user u1, got %q", session.UserID)
	}
}

func TestStaticProviderWithoutToken(t *testing.T) {
	provider := &StaticProvider{Session: &Session{UserID: "u1"}}
	if _, err := provider.Current(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for a token-less session, got %v", err)
	}
}
