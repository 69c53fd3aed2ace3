package bolt

import (
	"context"
	"time"

	"github.com/boltdb/bolt"
	"github.com/milhasrod/gateway/internal/attempt"
	"github.com/milhasrod/gateway/internal/storage"
)

const attemptsBucket = "attempts"

// Driver represents the BoltDB storage driver implementation.
// All data lives in a single file, so no external database process is required.
type Driver struct {
	path     string
	db       *bolt.DB
	attempts *AttemptRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty BoltDB storage driver writing to the given file
func New(path string) *Driver {
	return &Driver{
		path: path,
	}
}

// Initialize opens (or creates) the database file and ensures the required buckets exist
func (driver *Driver) Initialize(_ context.Context) error {
	db, err := bolt.Open(driver.path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(attemptsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return err
	}

	driver.db = db
	driver.attempts = &AttemptRepository{db: db}
	return nil
}

// Attempts provides the BoltDB search attempt repository implementation
func (driver *Driver) Attempts() attempt.Repository {
	return driver.attempts
}

// Close discards the repository implementations and releases the database file lock
func (driver *Driver) Close() {
	driver.attempts = nil
	if driver.db != nil {
		driver.db.Close()
		driver.db = nil
	}
}
