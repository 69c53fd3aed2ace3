package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/milhasrod/gateway/internal/attempt"
)

// AttemptRepository implements the attempt.Repository interface using go-memdb.
// Stored objects are never mutated; every save inserts a fresh copy.
type AttemptRepository struct {
	db *memdb.MemDB
}

var _ attempt.Repository = (*AttemptRepository)(nil)

// Save inserts the attempt or updates the state of the attempt carrying the same reference
func (repo *AttemptRepository) Save(_ context.Context, obj *attempt.Attempt) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First("attempts", "id", obj.Ref)
	if err != nil {
		return err
	}
	if existing != nil {
		stored := existing.(*attempt.Attempt)
		obj.ID = stored.ID
		obj.CreatedAt = stored.CreatedAt
	}
	if obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}

	cpy := *obj
	if err := txn.Insert("attempts", &cpy); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// GetByRef retrieves an attempt by its spend reference
func (repo *AttemptRepository) GetByRef(_ context.Context, ref string) (*attempt.Attempt, error) {
	txn := repo.db.Txn(false)
	obj, err := txn.First("attempts", "id", ref)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	cpy := *obj.(*attempt.Attempt)
	return &cpy, nil
}

// GetByUserID retrieves the attempts of a user, most recent first
func (repo *AttemptRepository) GetByUserID(_ context.Context, userID string, offset, limit uint64) ([]*attempt.Attempt, uint64, error) {
	matches, err := repo.byUser(userID)
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
	matches, err := repo.byUser(userID)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, obj := range matches {
		if obj.RefundUncertain {
			n++
		}
	}
	return n, nil
}

func (repo *AttemptRepository) byUser(userID string) ([]*attempt.Attempt, error) {
	txn := repo.db.Txn(false)
	it, err := txn.Get("attempts", "userID", userID)
	if err != nil {
		return nil, err
	}

	matches := []*attempt.Attempt{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		cpy := *obj.(*attempt.Attempt)
		matches = append(matches, &cpy)
	}
	return matches, nil
}
