package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/milhasrod/gateway/internal/attempt"
	"github.com/milhasrod/gateway/internal/balance"
	"github.com/milhasrod/gateway/internal/credits"
	"github.com/milhasrod/gateway/internal/identity"
	"github.com/milhasrod/gateway/internal/metrics"
	"github.com/milhasrod/gateway/internal/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Ledger represents the credit ledger operations the controller relies on
type Ledger interface {
	Balance(ctx context.Context, token string) (int64, error)
	Spend(ctx context.Context, token string, spend *credits.SpendRequest) error
	Refund(ctx context.Context, token string, refund *credits.RefundRequest) error
}

// Searcher represents the flight search operation
type Searcher interface {
	Search(ctx context.Context, token string, query *search.Query) (*search.Result, error)
}

// Dependencies holds the collaborators of a Controller
type Dependencies struct {
	Sessions identity.Provider
	Ledger   Ledger
	Searcher Searcher

	// Balances receives every balance read from the ledger. Optional.
	Balances *balance.Cache

	// Attempts journals the terminal state of every attempt. Optional.
	Attempts attempt.Repository

	// References generates the spend references. A fresh generator is used if nil.
	References *search.ReferenceGenerator
}

// Outcome represents the result of a successful guarded search
type Outcome struct {
	Ref    string         `json:"ref"`
	Result *search.Result `json:"result"`

	// Balance holds the balance read right after the debit, if that read succeeded
	Balance *int64 `json:"balance,omitempty"`
}

// Controller charges one credit per search attempt and refunds it if the search does not complete
type Controller struct {
	deps Dependencies
	now  func() time.Time
}

// New creates a new guarded search controller
func New(deps Dependencies) *Controller {
	if deps.References == nil {
		deps.References = search.NewReferenceGenerator()
	}
	return &Controller{
		deps: deps,
		now:  time.Now,
	}
}

// ExecuteGuardedSearch validates the query, debits one credit, performs the search and refunds the credit if the
// search fails. Every invocation uses its own spend reference; nothing is retried.
func (controller *Controller) ExecuteGuardedSearch(ctx context.Context, query *search.Query) (*Outcome, error) {
	query.Normalize()
	if err := query.Validate(); err != nil {
		metrics.GuardedSearches.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	session, err := controller.session(ctx)
	if err != nil {
		metrics.GuardedSearches.WithLabelValues(metrics.OutcomeUnauthenticated).Inc()
		return nil, err
	}

	ref := controller.deps.References.Next()
	record := &attempt.Attempt{
		Ref:         ref,
		UserID:      session.UserID,
		Origin:      query.Origin,
		Destination: query.Destination,
		StartDate:   query.StartDate,
		CreatedAt:   controller.now(),
	}
	logger := log.With().Str("ref", ref).Str("user", session.UserID).Logger()

	// Debit
	err = controller.deps.Ledger.Spend(ctx, session.Token, &credits.SpendRequest{
		Amount: credits.SearchCost,
		Ref:    ref,
		Reason: credits.ReasonSearch,
	})
	metrics.ObserveLedgerCall("spend", err)
	if err != nil {
		if errors.Is(err, credits.ErrInsufficientBalance) {
			logger.Debug().Msg("Search rejected because of an insufficient balance")
			controller.journal(ctx, record, attempt.StatusRejected, err)
			metrics.GuardedSearches.WithLabelValues(metrics.OutcomeRejected).Inc()
			return nil, fmt.Errorf("%w: %w", ErrInsufficientCredits, err)
		}
		logger.Warn().Err(err).Msg("Could not spend credits for a search")
		controller.invalidate(session)
		controller.journal(ctx, record, attempt.StatusSpendFailed, err)
		metrics.GuardedSearches.WithLabelValues(metrics.OutcomeSpendFailed).Inc()
		return nil, &SpendFailedError{Ref: ref, Cause: err}
	}

	afterDebit := controller.refresh(ctx, session)

	// Search
	timer := prometheus.NewTimer(metrics.SearchLatency)
	result, searchErr := controller.deps.Searcher.Search(ctx, session.Token, query)
	timer.ObserveDuration()
	if searchErr == nil {
		controller.journal(ctx, record, attempt.StatusConsumed, nil)
		metrics.GuardedSearches.WithLabelValues(metrics.OutcomeConsumed).Inc()
		return &Outcome{
			Ref:     ref,
			Result:  result,
			Balance: afterDebit,
		}, nil
	}
	logger.Warn().Err(searchErr).Msg("Search failed; refunding its credit")

	// Compensate. The refund has to be issued even if the caller went away in the meantime.
	refundCtx := context.WithoutCancel(ctx)
	refundErr := controller.deps.Ledger.Refund(refundCtx, session.Token, &credits.RefundRequest{
		Ref:    ref,
		Reason: credits.ReasonSearchFailed,
	})
	metrics.ObserveLedgerCall("refund", refundErr)
	afterRefund := controller.refresh(refundCtx, session)

	failure := &SearchFailedError{
		Ref:     ref,
		Cause:   searchErr,
		Balance: afterRefund,
	}
	if refundErr != nil {
		logger.Error().Err(refundErr).Msg("Could not refund the credit of a failed search")
		failure.RefundUncertain = true
		controller.journal(refundCtx, record, attempt.StatusRefundUncertain, refundErr)
		metrics.GuardedSearches.WithLabelValues(metrics.OutcomeRefundUncertain).Inc()
	} else {
		controller.journal(refundCtx, record, attempt.StatusRefunded, searchErr)
		metrics.GuardedSearches.WithLabelValues(metrics.OutcomeRefunded).Inc()
	}
	return nil, failure
}

// RefreshBalance reads the current balance from the ledger and caches it
func (controller *Controller) RefreshBalance(ctx context.Context) (int64, error) {
	session, err := controller.session(ctx)
	if err != nil {
		return 0, err
	}
	value, err := controller.deps.Ledger.Balance(ctx, session.Token)
	metrics.ObserveLedgerCall("balance", err)
	if err != nil {
		controller.invalidate(session)
		return 0, err
	}
	if controller.deps.Balances != nil {
		controller.deps.Balances.Store(session.UserID, value)
	}
	return value, nil
}

// Balance returns the cached balance of the current user, reading it from the ledger if none is cached
func (controller *Controller) Balance(ctx context.Context) (int64, error) {
	session, err := controller.session(ctx)
	if err != nil {
		return 0, err
	}
	if controller.deps.Balances != nil {
		if value, ok := controller.deps.Balances.Lookup(session.UserID); ok {
			return value, nil
		}
	}
	return controller.RefreshBalance(ctx)
}

func (controller *Controller) session(ctx context.Context) (*identity.Session, error) {
	session, err := controller.deps.Sessions.Current(ctx)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	if session == nil || session.Token == "" {
		return nil, ErrNotAuthenticated
	}
	return session, nil
}

// refresh reads the balance after a ledger mutation. Failures are logged only.
func (controller *Controller) refresh(ctx context.Context, session *identity.Session) *int64 {
	value, err := controller.deps.Ledger.Balance(ctx, session.Token)
	metrics.ObserveLedgerCall("balance", err)
	if err != nil {
		log.Warn().Err(err).Str("user", session.UserID).Msg("Could not refresh the credit balance")
		controller.invalidate(session)
		return nil
	}
	if controller.deps.Balances != nil {
		controller.deps.Balances.Store(session.UserID, value)
	}
	return &value
}

func (controller *Controller) invalidate(session *identity.Session) {
	if controller.deps.Balances != nil {
		controller.deps.Balances.Invalidate(session.UserID)
	}
}

// journal records the terminal state of an attempt. Failures are logged only.
func (controller *Controller) journal(ctx context.Context, record *attempt.Attempt, status attempt.Status, cause error) {
	if controller.deps.Attempts == nil {
		return
	}
	record.Status = status
	record.RefundUncertain = status == attempt.StatusRefundUncertain
	record.Cause = ""
	if cause != nil {
		record.Cause = cause.Error()
	}
	record.UpdatedAt = controller.now()
	if err := controller.deps.Attempts.Save(ctx, record); err != nil {
		log.Warn().Err(err).Str("ref", record.Ref).Msg("Could not journal a search attempt")
	}
}
