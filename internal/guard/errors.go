package guard

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when a guarded operation is invoked without an active session.
	// No ledger call is made in this case.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInsufficientCredits is returned when the ledger refuses the debit because the balance does not cover it.
	// The search is not attempted in this case.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// SpendFailedError is returned when the debit failed for a reason other than an insufficient balance.
// The search is not attempted; whether the ledger applied the debit is unknown.
type SpendFailedError struct {
	Ref   string
	Cause error
}

func (err *SpendFailedError) Error() string {
	return fmt.Sprintf("spending credits for %s failed: %v", err.Ref, err.Cause)
}

func (err *SpendFailedError) Unwrap() error {
	return err.Cause
}

// SearchFailedError is returned when the search failed after a successful debit.
// The debit was compensated by a refund unless RefundUncertain is set, in which case the refund call itself failed
// and the balance the ledger reports may be off by one credit.
type SearchFailedError struct {
	Ref             string
	Cause           error
	RefundUncertain bool

	// Balance holds the balance read after the refund attempt, if that read succeeded
	Balance *int64
}

func (err *SearchFailedError) Error() string {
	if err.RefundUncertain {
		return fmt.Sprintf("search %s failed (refund uncertain): %v", err.Ref, err.Cause)
	}
	return fmt.Sprintf("search %s failed: %v", err.Ref, err.Cause)
}

func (err *SearchFailedError) Unwrap() error {
	return err.Cause
}
