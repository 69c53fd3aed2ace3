package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/milhasrod/gateway/internal/attempt"
	"github.com/milhasrod/gateway/internal/balance"
	"github.com/milhasrod/gateway/internal/credits"
	"github.com/milhasrod/gateway/internal/identity"
	"github.com/milhasrod/gateway/internal/search"
	"github.com/milhasrod/gateway/internal/storage/inmem"
	"github.com/milhasrod/gateway/internal/upstream"
)

// fakeLedger keeps an in-memory balance and records every call made to it
type fakeLedger struct {
	mtx       sync.Mutex
	balance   int64
	spends    []*credits.SpendRequest
	refunds   []*credits.RefundRequest
	reads     int
	spendErr  error
	refundErr error
	readErr   error
}

func (ledger *fakeLedger) Balance(_ context.Context, _ string) (int64, error) {
	ledger.mtx.Lock()
	defer ledger.mtx.Unlock()
	ledger.reads++
	if ledger.readErr != nil {
		return 0, ledger.readErr
	}
	return ledger.balance, nil
}

func (ledger *fakeLedger) Spend(_ context.Context, _ string, spend *credits.SpendRequest) error {
	ledger.mtx.Lock()
	defer ledger.mtx.Unlock()
	ledger.spends = append(ledger.spends, spend)
	if ledger.spendErr != nil {
		return ledger.spendErr
	}
	if ledger.balance < spend.Amount {
		return fmt.Errorf("spend %s: %w", spend.Ref, credits.ErrInsufficientBalance)
	}
	ledger.balance -= spend.Amount
	return nil
}

func (ledger *fakeLedger) Refund(_ context.Context, _ string, refund *credits.RefundRequest) error {
	ledger.mtx.Lock()
	defer ledger.mtx.Unlock()
	ledger.refunds = append(ledger.refunds, refund)
	if ledger.refundErr != nil {
		return ledger.refundErr
	}
	ledger.balance += credits.SearchCost
	return nil
}

func (ledger *fakeLedger) calls() int {
	ledger.mtx.Lock()
	defer ledger.mtx.Unlock()
	return len(ledger.spends) + len(ledger.refunds) + ledger.reads
}

type fakeSearcher struct {
	mtx     sync.Mutex
	queries []*search.Query
	result  *search.Result
	err     error
}

func (searcher *fakeSearcher) Search(_ context.Context, _ string, query *search.Query) (*search.Result, error) {
	searcher.mtx.Lock()
	defer searcher.mtx.Unlock()
	searcher.queries = append(searcher.queries, query)
	if searcher.err != nil {
		return nil, searcher.err
	}
	return searcher.result, nil
}

type fixture struct {
	ledger     *fakeLedger
	searcher   *fakeSearcher
	balances   *balance.Cache
	attempts   attempt.Repository
	controller *Controller
}

func newFixture(t *testing.T, startBalance int64, session *identity.Session) *fixture {
	t.Helper()

	storage := inmem.New()
	if err := storage.Initialize(context.Background()); err != nil {
		t.Fatalf("could not initialize storage: %v", err)
	}
	t.Cleanup(storage.Close)

	fix := &fixture{
		ledger: &fakeLedger{balance: startBalance},
		searcher: &fakeSearcher{result: &search.Result{CheapestDays: []*search.Day{
			{Date: "2026-11-02", Cabin: "J", Source: "smiles", MileageCost: 70000},
		}}},
		balances: balance.NewCache(0),
		attempts: storage.Attempts(),
	}
	fix.controller = New(Dependencies{
		Sessions: &identity.StaticProvider{Session: session},
		Ledger:   fix.ledger,
		Searcher: fix.searcher,
		Balances: fix.balances,
		Attempts: fix.attempts,
	})
	return fix
}

func testSession() *identity.Session {
	return &identity.Session{Token: "token", UserID: "user-a"}
}

func testQuery() *search.Query {
	return &search.Query{
		Origin:      "GRU",
		Destination: "LIS",
		StartDate:   "2026-11-02",
		Days:        7,
		Cabins:      []string{"J"},
	}
}

func TestSuccessfulSearchConsumesOneCredit(t *testing.T) {
	fix := newFixture(t, 3, testSession())

	outcome, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result == nil || len(outcome.Result.CheapestDays) != 1 {
		t.Fatalf("expected the search result, got %+v", outcome.Result)
	}
	if len(fix.ledger.spends) != 1 {
		t.Fatalf("expected exactly one debit, got %d", len(fix.ledger.spends))
	}
	if len(fix.ledger.refunds) != 0 {
		t.Fatalf("expected no refund, got %d", len(fix.ledger.refunds))
	}
	if fix.ledger.reads != 1 {
		t.Fatalf("expected one balance refresh, got %d", fix.ledger.reads)
	}

	spend := fix.ledger.spends[0]
	if spend.Amount != 1 || spend.Reason != credits.ReasonSearch || spend.Ref != outcome.Ref {
		t.Fatalf("unexpected spend request %+v", spend)
	}
	if outcome.Balance == nil || *outcome.Balance != 2 {
		t.Fatalf("expected refreshed balance 2, got %v", outcome.Balance)
	}
	if cached, ok := fix.balances.Lookup("user-a"); !ok || cached != 2 {
		t.Fatalf("expected cached balance 2, got %d (%v)", cached, ok)
	}

	record, err := fix.attempts.GetByRef(context.Background(), outcome.Ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil || record.Status != attempt.StatusConsumed {
		t.Fatalf("expected a consumed attempt, got %+v", record)
	}
}

func TestFailedSearchIsRefundedWithTheSameReference(t *testing.T) {
	fix := newFixture(t, 3, testSession())
	cause := errors.New("upstream exploded")
	fix.searcher.err = cause

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())

	var failure *SearchFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("expected *SearchFailedError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected the search failure to wrap its cause")
	}
	if failure.RefundUncertain {
		t.Fatal("refund succeeded; it must not be marked as uncertain")
	}
	if len(fix.ledger.spends) != 1 || len(fix.ledger.refunds) != 1 {
		t.Fatalf("expected one debit and one refund, got %d and %d", len(fix.ledger.spends), len(fix.ledger.refunds))
	}
	refund := fix.ledger.refunds[0]
	if refund.Ref != fix.ledger.spends[0].Ref || refund.Ref != failure.Ref {
		t.Fatalf("refund reference %q does not match debit reference %q", refund.Ref, fix.ledger.spends[0].Ref)
	}
	if refund.Reason != credits.ReasonSearchFailed {
		t.Fatalf("unexpected refund reason %q", refund.Reason)
	}
	if fix.ledger.reads != 2 {
		t.Fatalf("expected two balance refreshes, got %d", fix.ledger.reads)
	}

	// balance=3, search throws: the balance is back at 3 after the refund
	if failure.Balance == nil || *failure.Balance != 3 {
		t.Fatalf("expected balance 3 after the refund, got %v", failure.Balance)
	}
	if cached, _ := fix.balances.Lookup("user-a"); cached != 3 {
		t.Fatalf("expected cached balance 3, got %d", cached)
	}

	record, _ := fix.attempts.GetByRef(context.Background(), failure.Ref)
	if record == nil || record.Status != attempt.StatusRefunded {
		t.Fatalf("expected a refunded attempt, got %+v", record)
	}
}

func TestFailedRefundMarksOutcomeUncertain(t *testing.T) {
	fix := newFixture(t, 3, testSession())
	fix.searcher.err = errors.New("search down")
	fix.ledger.refundErr = errors.New("ledger down")

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())

	var failure *SearchFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("expected *SearchFailedError, got %v", err)
	}
	if !failure.RefundUncertain {
		t.Fatal("expected the refund to be marked as uncertain")
	}
	if len(fix.ledger.refunds) != 1 {
		t.Fatalf("a failed refund must not be retried, got %d refund calls", len(fix.ledger.refunds))
	}

	n, err := fix.attempts.CountUncertain(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one uncertain attempt, got %d", n)
	}
}

func TestSearchPaymentRequiredIsRefunded(t *testing.T) {
	fix := newFixture(t, 1, testSession())
	fix.searcher.err = fmt.Errorf("%w: HTTP 402", credits.ErrPaymentRequired)

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())

	var failure *SearchFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("expected *SearchFailedError, got %v", err)
	}
	if !errors.Is(err, credits.ErrPaymentRequired) {
		t.Fatal("expected the failure to wrap ErrPaymentRequired")
	}
	if len(fix.ledger.refunds) != 1 {
		t.Fatalf("expected one refund, got %d", len(fix.ledger.refunds))
	}
}

func TestInvalidQueryMakesNoCalls(t *testing.T) {
	fix := newFixture(t, 3, testSession())
	query := testQuery()
	query.Days = 15

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), query)

	var validationErr *search.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *search.ValidationError, got %v", err)
	}
	if validationErr.Field != "days" {
		t.Fatalf("expected the day count to be rejected, got %q", validationErr.Field)
	}
	if calls := fix.ledger.calls(); calls != 0 {
		t.Fatalf("expected no ledger calls, got %d", calls)
	}
	if len(fix.searcher.queries) != 0 {
		t.Fatal("expected no search call")
	}
}

func TestUnauthenticatedMakesNoLedgerCalls(t *testing.T) {
	fix := newFixture(t, 3, nil)

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if calls := fix.ledger.calls(); calls != 0 {
		t.Fatalf("expected no ledger calls, got %d", calls)
	}
	if len(fix.searcher.queries) != 0 {
		t.Fatal("expected no search call")
	}
}

func TestZeroBalanceIsRejected(t *testing.T) {
	fix := newFixture(t, 0, testSession())

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if len(fix.searcher.queries) != 0 {
		t.Fatal("the search must not be invoked without credits")
	}
	if len(fix.ledger.refunds) != 0 {
		t.Fatal("a rejected debit must not be refunded")
	}

	page, _, err := fix.attempts.GetByUserID(context.Background(), "user-a", 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 1 || page[0].Status != attempt.StatusRejected {
		t.Fatalf("expected one rejected attempt, got %+v", page)
	}
}

func TestSpendFailureStopsBeforeSearch(t *testing.T) {
	fix := newFixture(t, 3, testSession())
	fix.balances.Store("user-a", 3)
	fix.ledger.spendErr = errors.New("connection reset")

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())

	var failure *SpendFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("expected *SpendFailedError, got %v", err)
	}
	if failure.Ref == "" {
		t.Fatal("expected the failure to carry its reference")
	}
	if len(fix.searcher.queries) != 0 {
		t.Fatal("the search must not be invoked after a failed debit")
	}
	if len(fix.ledger.refunds) != 0 {
		t.Fatal("a failed debit must not be refunded")
	}
	if _, ok := fix.balances.Lookup("user-a"); ok {
		t.Fatal("expected the cached balance to be invalidated")
	}
}

func TestUnconfirmedSpendNeverSearches(t *testing.T) {
	var searches, refunds int
	var mtx sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		mtx.Lock()
		defer mtx.Unlock()
		rw.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/credits/spend":
			// 2xx without 'success: true'
			_, _ = rw.Write([]byte(`{"message":"ledger busy"}`))
		case "/api/credits/refund":
			refunds++
			_, _ = rw.Write([]byte(`{"success":true}`))
		case "/api/search":
			searches++
			_, _ = rw.Write([]byte(`{"cheapest_days":[]}`))
		default:
			_, _ = rw.Write([]byte(`{"balance":3}`))
		}
	}))
	defer server.Close()

	client := upstream.New(server.URL)
	controller := New(Dependencies{
		Sessions: &identity.StaticProvider{Session: testSession()},
		Ledger:   client,
		Searcher: client,
	})

	_, err := controller.ExecuteGuardedSearch(context.Background(), testQuery())
	var failure *SpendFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("expected *SpendFailedError, got %v", err)
	}
	mtx.Lock()
	defer mtx.Unlock()
	if searches != 0 {
		t.Fatalf("an unconfirmed debit must not reach the search, got %d searches", searches)
	}
	if refunds != 0 {
		t.Fatalf("an unconfirmed debit must not be refunded, got %d refunds", refunds)
	}
}

func TestBalanceRefreshFailureIsNotFatal(t *testing.T) {
	fix := newFixture(t, 3, testSession())
	fix.ledger.readErr = errors.New("balance unavailable")

	outcome, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("a failed balance refresh must not fail the search, got %v", err)
	}
	if outcome.Balance != nil {
		t.Fatalf("expected no balance, got %d", *outcome.Balance)
	}
	if len(fix.ledger.refunds) != 0 {
		t.Fatal("a failed balance refresh must not roll back the debit")
	}
}

func TestSequentialCallsUseDistinctReferences(t *testing.T) {
	fix := newFixture(t, 10, testSession())

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		outcome, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := seen[outcome.Ref]; ok {
			t.Fatalf("reference %q was reused", outcome.Ref)
		}
		seen[outcome.Ref] = struct{}{}
	}
	if len(fix.ledger.spends) != 5 {
		t.Fatalf("expected 5 debits, got %d", len(fix.ledger.spends))
	}
}

func TestRetryAfterFailureUsesNewReference(t *testing.T) {
	fix := newFixture(t, 3, testSession())
	fix.searcher.err = errors.New("timeout")

	_, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())
	var first *SearchFailedError
	if !errors.As(err, &first) {
		t.Fatalf("expected *SearchFailedError, got %v", err)
	}

	fix.searcher.err = nil
	outcome, err := fix.controller.ExecuteGuardedSearch(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Ref == first.Ref {
		t.Fatal("a retried search must use a new reference")
	}
}

func TestBalanceUsesCache(t *testing.T) {
	fix := newFixture(t, 7, testSession())

	value, err := fix.controller.Balance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 7 {
		t.Fatalf("expected balance 7, got %d", value)
	}
	if _, err := fix.controller.Balance(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix.ledger.reads != 1 {
		t.Fatalf("expected the second read to be served from the cache, got %d ledger reads", fix.ledger.reads)
	}
}

func TestContextSessionProvider(t *testing.T) {
	ledger := &fakeLedger{balance: 4}
	controller := New(Dependencies{
		Sessions: identity.ContextProvider{},
		Ledger:   ledger,
		Searcher: &fakeSearcher{},
	})

	if _, err := controller.RefreshBalance(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	ctx := identity.WithSession(context.Background(), testSession())
	value, err := controller.RefreshBalance(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 4 {
		t.Fatalf("expected balance 4, got %d", value)
	}
}
