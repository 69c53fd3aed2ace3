package schema

import "fmt"

var emptyMap = map[string]any{}

var (
	ErrInternal = &Error{
		Type:    "generic.internal",
		Message: "An internal error occurred.",
		Details: emptyMap,
	}
	ErrNotFound = &Error{
		Type:    "generic.notFound",
		Message: "Resource not found.",
		Details: emptyMap,
	}
	ErrMethodNotAllowed = &Error{
		Type:    "generic.methodNotAllowed",
		Message: "Method not allowed.",
		Details: emptyMap,
	}
	ErrUnauthorized = &Error{
		Type:    "access.unauthorized",
		Message: "Unauthorized",
		Details: emptyMap,
	}
	ErrInsufficientCredits = &Error{
		Type:    "credits.insufficient",
		Message: "Your credit balance does not cover a search. Buy more credits to continue.",
		Details: emptyMap,
	}
	ErrSearchInFlight = &Error{
		Type:    "search.inFlight",
		Message: "Another search of yours is still running.",
		Details: emptyMap,
	}
)

// ErrSearchInvalid is returned when a search query does not satisfy the search constraints
func ErrSearchInvalid(field, message string) *Error {
	return &Error{
		Type:    "validation.search." + field,
		Message: message,
		Details: map[string]any{
			"field": field,
		},
	}
}

// ErrSpendFailed is returned when the credit ledger could not be debited for a search
func ErrSpendFailed(ref string) *Error {
	return &Error{
		Type:    "credits.spendFailed",
		Message: "Your credits could not be spent. No search was performed; please try again.",
		Details: map[string]any{
			"ref": ref,
		},
	}
}

// ErrSearchFailed is returned when the search itself failed after the debit
func ErrSearchFailed(ref string, refundUncertain bool, balance *int64) *Error {
	message := "The search failed. Your credit was refunded."
	if refundUncertain {
		message = "The search failed and your credit could not be refunded automatically. Your balance may be off by one credit."
	}
	details := map[string]any{
		"ref":              ref,
		"refund_uncertain": refundUncertain,
	}
	if balance != nil {
		details["balance"] = *balance
	}
	return &Error{
		Type:    "search.failed",
		Message: message,
		Details: details,
	}
}

// ErrUpstream is returned when the MilhasRod API could not serve a passthrough request
func ErrUpstream(operation string, code int) *Error {
	return &Error{
		Type:    "upstream." + operation + ".failed",
		Message: fmt.Sprintf("The %s request could not be served by the upstream API.", operation),
		Details: map[string]any{
			"operation":     operation,
			"upstream_code": code,
		},
	}
}

// ErrorResponse represents the response structure sent by the portal API whenever errors occurred
type ErrorResponse struct {
	Status int      `json:"status"`
	Errors []*Error `json:"errors"`
}

// Error represents a single error present in the ErrorResponse
type Error struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
