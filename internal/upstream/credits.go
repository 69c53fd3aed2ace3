package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/milhasrod/gateway/internal/credits"
)

// messageInsufficientBalance is the message the ledger reports when a spend exceeds the balance
const messageInsufficientBalance = "insufficient_balance"

type balanceResponse struct {
	Balance *int64 `json:"balance"`
}

type mutationResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

type historyResponse struct {
	Items []*credits.HistoryEntry `json:"items"`
}

// Balance retrieves the current credit balance of the token's owner
func (client *Client) Balance(ctx context.Context, token string) (int64, error) {
	response := new(balanceResponse)
	if err := client.do(ctx, token, http.MethodGet, "/api/credits", nil, nil, response); err != nil {
		return 0, err
	}
	if response.Balance == nil {
		return 0, errors.New("balance response carries no balance")
	}
	if *response.Balance < 0 {
		return 0, nil
	}
	return *response.Balance, nil
}

// Spend debits the ledger. Only an answer carrying 'success: true' confirms the debit.
// Returns credits.ErrInsufficientBalance (wrapped) if the balance does not cover the amount.
func (client *Client) Spend(ctx context.Context, token string, spend *credits.SpendRequest) error {
	response := new(mutationResponse)
	err := client.do(ctx, token, http.MethodPost, "/api/credits/spend", nil, spend, response)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.Code == http.StatusPaymentRequired || statusErr.Message == messageInsufficientBalance) {
			return fmt.Errorf("spend %s: %w", spend.Ref, credits.ErrInsufficientBalance)
		}
		return err
	}
	if response.Success == nil || !*response.Success {
		if response.Message == messageInsufficientBalance {
			return fmt.Errorf("spend %s: %w", spend.Ref, credits.ErrInsufficientBalance)
		}
		return &RejectedError{Operation: "spend", Message: response.Message}
	}
	return nil
}

// Refund compensates the debit identified by the request's reference
func (client *Client) Refund(ctx context.Context, token string, refund *credits.RefundRequest) error {
	response := new(mutationResponse)
	if err := client.do(ctx, token, http.MethodPost, "/api/credits/refund", nil, refund, response); err != nil {
		return err
	}
	if response.Success != nil && !*response.Success {
		return &RejectedError{Operation: "refund", Message: response.Message}
	}
	return nil
}

// History retrieves the most recent ledger mutations of the token's owner
func (client *Client) History(ctx context.Context, token string, limit int) ([]*credits.HistoryEntry, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	response := new(historyResponse)
	if err := client.do(ctx, token, http.MethodGet, "/api/credits/history", query, nil, response); err != nil {
		return nil, err
	}
	if response.Items == nil {
		return []*credits.HistoryEntry{}, nil
	}
	return response.Items, nil
}
