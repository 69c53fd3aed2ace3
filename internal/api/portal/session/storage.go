package session

import "context"

// Storage defines the session storage API
type Storage interface {
	// GetByRawToken retrieves a non-expired session by its raw (prior hashing) token
	GetByRawToken(ctx context.Context, rawToken string) (*Session, error)

	// Create creates a new session and returns its raw token
	Create(ctx context.Context, create *Create) (string, error)

	// TerminateByRawToken terminates the session identified by its raw token
	TerminateByRawToken(ctx context.Context, rawToken string) error

	// TerminateExpired terminates all sessions that are expired
	TerminateExpired(ctx context.Context) (int, error)
}
