// Package metrics holds the Prometheus collectors of the gateway
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Guarded search outcomes
const (
	OutcomeRejected        = "rejected"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeInvalid         = "invalid"
	OutcomeSpendFailed     = "spend_failed"
	OutcomeConsumed        = "consumed"
	OutcomeRefunded        = "refunded"
	OutcomeRefundUncertain = "refund_uncertain"
)

var (
	// GuardedSearches counts the guarded search invocations by their outcome
	GuardedSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "milhas_guarded_searches_total",
		Help: "Total guarded search invocations",
	}, []string{"outcome"})

	// LedgerCalls counts the calls issued to the credit ledger
	LedgerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "milhas_ledger_calls_total",
		Help: "Total credit ledger calls",
	}, []string{"operation", "result"})

	// SearchLatency observes the latency of the upstream search call
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "milhas_search_duration_seconds",
		Help:    "Upstream search latency",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
	})

	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "milhas_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "milhas_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})
)

// ObserveLedgerCall records the result of a single ledger call
func ObserveLedgerCall(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LedgerCalls.WithLabelValues(operation, result).Inc()
}

// Middleware records the request count and latency of every request, labelled by its chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
		next.ServeHTTP(wrapped, request)

		route := "unmatched"
		if rctx := chi.RouteContext(request.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := wrapped.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpReqTotal.WithLabelValues(request.Method, route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	})
}
