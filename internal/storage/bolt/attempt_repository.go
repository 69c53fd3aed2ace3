package bolt

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/milhasrod/gateway/internal/attempt"
)

// AttemptRepository implements the attempt.Repository interface using BoltDB.
// Attempts are stored as JSON documents keyed by their spend reference.
type AttemptRepository struct {
	db *bolt.DB
}

var _ attempt.Repository = (*AttemptRepository)(nil)

// Save inserts the attempt or updates the state of the attempt carrying the same reference.
// The ID and creation time of an already stored attempt are kept.
func (repo *AttemptRepository) Save(_ context.Context, obj *attempt.Attempt) error {
	return repo.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(attemptsBucket))

		if existing := bucket.Get([]byte(obj.Ref)); existing != nil {
			stored := new(attempt.Attempt)
			if err := json.Unmarshal(existing, stored); err != nil {
				return err
			}
			obj.ID = stored.ID
			obj.CreatedAt = stored.CreatedAt
		}
		if obj.ID == uuid.Nil {
			obj.ID = uuid.New()
		}

		data, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(obj.Ref), data)
	})
}

// GetByRef retrieves an attempt by its spend reference
func (repo *AttemptRepository) GetByRef(_ context.Context, ref string) (*attempt.Attempt, error) {
	var obj *attempt.Attempt
	err := repo.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(attemptsBucket)).Get([]byte(ref))
		if data == nil {
			return nil
		}
		obj = new(attempt.Attempt)
		return json.Unmarshal(data, obj)
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// GetByUserID retrieves the attempts of a user, most recent first
func (repo *AttemptRepository) GetByUserID(_ context.Context, userID string, offset, limit uint64) ([]*attempt.Attempt, uint64, error) {
	matches, err := repo.filter(func(obj *attempt.Attempt) bool {
		return obj.UserID == userID
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	n := uint64(len(matches))
	if offset >= n {
		return []*attempt.Attempt{}, n, nil
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return matches[offset:end], n, nil
}

// CountUncertain counts the attempts of a user whose refund state is uncertain
func (repo *AttemptRepository) CountUncertain(_ context.Context, userID string) (uint64, error) {
	matches, err := repo.filter(func(obj *attempt.Attempt) bool {
		return obj.UserID == userID && obj.RefundUncertain
	})
	if err != nil {
		return 0, err
	}
	return uint64(len(matches)), nil
}

func (repo *AttemptRepository) filter(keep func(*attempt.Attempt) bool) ([]*attempt.Attempt, error) {
	matches := []*attempt.Attempt{}
	err := repo.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(attemptsBucket)).ForEach(func(_, data []byte) error {
			obj := new(attempt.Attempt)
			if err := json.Unmarshal(data, obj); err != nil {
				return err
			}
			if keep(obj) {
				matches = append(matches, obj)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
