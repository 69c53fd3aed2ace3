package inmem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/milhasrod/gateway/internal/api/portal/session"
	"github.com/milhasrod/gateway/internal/random"
)

var tokenLength = 64

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"sessions": {
			Name: "sessions",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Token"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Driver represents the in-memory session storage driver built using hashicorp/go-memdb
type Driver struct {
	db  *memdb.MemDB
	now func() time.Time
}

var _ session.Storage = (*Driver)(nil)

// New creates a new empty in-memory session storage driver
func New() (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{
		db:  db,
		now: time.Now,
	}, nil
}

// GetByRawToken retrieves a non-expired session by its raw (prior hashing) token
func (driver *Driver) GetByRawToken(_ context.Context, rawToken string) (*session.Session, error) {
	txn := driver.db.Txn(false)
	obj, err := txn.First("sessions", "id", hashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	ses := obj.(*session.Session)
	if ses.Expired(driver.now()) {
		return nil, nil
	}
	return ses, nil
}

// Create creates a new session and returns its raw token
func (driver *Driver) Create(_ context.Context, create *session.Create) (string, error) {
	rawToken := random.String(tokenLength, random.CharsetTokens)

	ses := &session.Session{
		Token:       hashToken(rawToken),
		UserID:      create.UserID,
		Email:       create.Email,
		AccessToken: create.AccessToken,
		Expires:     create.Expires.Unix(),
	}

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("sessions", ses); err != nil {
		return "", err
	}
	txn.Commit()

	return rawToken, nil
}

// TerminateByRawToken terminates the session identified by its raw token
func (driver *Driver) TerminateByRawToken(_ context.Context, rawToken string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "id", hashToken(rawToken)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateExpired terminates all sessions that are expired
func (driver *Driver) TerminateExpired(_ context.Context) (int, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound("sessions", "expires", int64(0))
	if err != nil {
		return 0, err
	}

	now := driver.now()
	var expired []*session.Session
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ses := obj.(*session.Session)
		if !ses.Expired(now) {
			break
		}
		expired = append(expired, ses)
	}
	for _, ses := range expired {
		if err := txn.Delete("sessions", ses); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
