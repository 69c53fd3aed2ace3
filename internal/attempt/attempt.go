package attempt

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the terminal state of a credit-gated search attempt
type Status string

const (
	// StatusRejected marks an attempt the ledger refused because of an insufficient balance
	StatusRejected Status = "rejected"

	// StatusSpendFailed marks an attempt whose debit failed for any other reason.
	// Whether the ledger applied the debit is unknown to the gateway.
	StatusSpendFailed Status = "spend_failed"

	// StatusConsumed marks a completed search; the credit stays spent
	StatusConsumed Status = "consumed"

	// StatusRefunded marks a failed search whose credit was returned
	StatusRefunded Status = "refunded"

	// StatusRefundUncertain marks a failed search whose refund call failed as well
	StatusRefundUncertain Status = "refund_uncertain"
)

// Attempt represents a single credit-gated search attempt, identified by its spend reference
type Attempt struct {
	ID              uuid.UUID `json:"id"`
	Ref             string    `json:"ref"`
	UserID          string    `json:"user_id"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	StartDate       string    `json:"start_date"`
	Status          Status    `json:"status"`
	RefundUncertain bool      `json:"refund_uncertain"`
	Cause           string    `json:"cause,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Debited returns whether the ledger (knowingly) applied the debit of this attempt
func (attempt *Attempt) Debited() bool {
	switch attempt.Status {
	case StatusConsumed, StatusRefunded, StatusRefundUncertain:
		return true
	default:
		return false
	}
}
