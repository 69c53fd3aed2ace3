package credits

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientBalance is returned by the ledger when a spend exceeds the current balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPaymentRequired is returned when the search API itself reports missing credits (HTTP 402)
	ErrPaymentRequired = errors.New("payment required")
)

const (
	// SearchCost is the amount of credits one search attempt costs
	SearchCost = 1

	// ReasonSearch tags a debit made for a search attempt
	ReasonSearch = "search"

	// ReasonSearchFailed tags the refund of a search attempt that did not complete
	ReasonSearchFailed = "search_failed"
)

// SpendRequest represents a debit against the ledger
type SpendRequest struct {
	Amount int64  `json:"amount"`
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// RefundRequest represents the compensation of an earlier debit, identified by its reference
type RefundRequest struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// HistoryEntry represents a single ledger mutation
type HistoryEntry struct {
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Ref       string    `json:"ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsCredit returns whether the entry increased the balance
func (entry *HistoryEntry) IsCredit() bool {
	return entry.Delta >= 0
}
