package identity

import (
	"context"
	"errors"
)

// ErrNoSession is returned by a Provider when there is no active session
var ErrNoSession = errors.New("no active session")

// Session represents the authenticated identity an operation is executed for.
// It is looked up for every single operation and never cached, as it may expire or change between two actions.
type Session struct {
	Token  string `json:"-"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Provider resolves the session of the current operation
type Provider interface {
	// Current returns the current session or ErrNoSession if there is none
	Current(ctx context.Context) (*Session, error)
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying the given session
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// FromContext extracts the session stored in ctx. Returns nil if there is none.
func FromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(contextKey{}).(*Session)
	return session
}

// ContextProvider resolves sessions injected into the context by WithSession (i.e. by HTTP middleware)
type ContextProvider struct{}

var _ Provider = ContextProvider{}

// Current returns the session carried by ctx
func (ContextProvider) Current(ctx context.Context) (*Session, error) {
	session := FromContext(ctx)
	if session == nil || session.Token == "" {
		return nil, ErrNoSession
	}
	return session, nil
}

// StaticProvider always resolves the same session; an empty token counts as logged out
type StaticProvider struct {
	Session *Session
}

var _ Provider = (*StaticProvider)(nil)

// Current returns the static session
func (provider *StaticProvider) Current(_ context.Context) (*Session, error) {
	if provider.Session == nil || provider.Session.Token == "" {
		return nil, ErrNoSession
	}
	return provider.Session, nil
}
