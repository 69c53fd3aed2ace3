package inmem

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/milhasrod/gateway/internal/attempt"
	"github.com/milhasrod/gateway/internal/storage"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"attempts": {
			Name: "attempts",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Ref"},
				},
				"userID": {
					Name:         "userID",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "UserID"},
				},
			},
		},
	},
}

// Driver represents the in-memory storage driver built using hashicorp/go-memdb.
// Everything it stores is lost once the process exits.
type Driver struct {
	db       *memdb.MemDB
	attempts *AttemptRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty in-memory storage driver
func New() *Driver {
	return &Driver{}
}

// Initialize creates the in-memory database
func (driver *Driver) Initialize(_ context.Context) error {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return err
	}
	driver.db = db
	driver.attempts = &AttemptRepository{db: db}
	return nil
}

// Attempts provides the in-memory search attempt repository implementation
func (driver *Driver) Attempts() attempt.Repository {
	return driver.attempts
}

// Close discards the in-memory database
func (driver *Driver) Close() {
	driver.attempts = nil
	driver.db = nil
}
