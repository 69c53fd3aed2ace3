package storage

import (
	"context"

	"github.com/milhasrod/gateway/internal/attempt"
)

// Driver represents a storage driver
type Driver interface {
	// Initialize initializes the storage driver (i.e. opens a database connection)
	Initialize(ctx context.Context) error

	// Attempts provides a search attempt repository implementation
	Attempts() attempt.Repository

	// Close closes the storage driver (i.e. closes a database connection)
	Close()
}
