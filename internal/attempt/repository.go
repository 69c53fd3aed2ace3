package attempt

import "context"

// Repository defines the search attempt journal API
type Repository interface {
	// Save inserts the attempt or, if an attempt with the same reference exists, updates its state
	Save(ctx context.Context, attempt *Attempt) error

	// GetByRef retrieves an attempt by its spend reference
	GetByRef(ctx context.Context, ref string) (*Attempt, error)

	// GetByUserID retrieves the attempts of a user, most recent first
	GetByUserID(ctx context.Context, userID string, offset, limit uint64) ([]*Attempt, uint64, error)

	// CountUncertain counts the attempts of a user whose refund state is uncertain
	CountUncertain(ctx context.Context, userID string) (uint64, error)
}
