package portal

import (
	"errors"
	"net/http"

	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/guard"
	"github.com/milhasrod/gateway/internal/search"
	"github.com/milhasrod/gateway/internal/upstream"
	"github.com/rs/zerolog/hlog"
)

// writeGuardError maps the errors of the guarded search controller onto API errors
func (service *Service) writeGuardError(writer http.ResponseWriter, err error) {
	var validationErr *search.ValidationError
	var spendErr *guard.SpendFailedError
	var searchErr *guard.SearchFailedError

	switch {
	case errors.As(err, &validationErr):
		service.writer.WriteErrors(writer, http.StatusBadRequest, schema.ErrSearchInvalid(validationErr.Field, validationErr.Message))
	case errors.Is(err, guard.ErrNotAuthenticated):
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
	case errors.Is(err, guard.ErrInsufficientCredits):
		service.writer.WriteErrors(writer, http.StatusPaymentRequired, schema.ErrInsufficientCredits)
	case errors.As(err, &spendErr):
		service.writer.WriteErrors(writer, http.StatusBadGateway, schema.ErrSpendFailed(spendErr.Ref))
	case errors.As(err, &searchErr):
		service.writer.WriteErrors(writer, http.StatusBadGateway, schema.ErrSearchFailed(searchErr.Ref, searchErr.RefundUncertain, searchErr.Balance))
	default:
		service.writer.WriteInternalError(writer, err)
	}
}

// writeUpstreamError maps errors of passthrough calls to the MilhasRod API onto API errors
func (service *Service) writeUpstreamError(writer http.ResponseWriter, request *http.Request, operation string, err error) {
	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) {
		hlog.FromRequest(request).Warn().Err(err).Str("operation", operation).Msg("upstream API unreachable")
		service.writer.WriteErrors(writer, http.StatusBadGateway, schema.ErrUpstream(operation, 0))
		return
	}

	switch statusErr.Code {
	case http.StatusUnauthorized:
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
	case http.StatusNotFound:
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	default:
		hlog.FromRequest(request).Warn().Err(err).Str("operation", operation).Msg("upstream API answered with an error")
		service.writer.WriteErrors(writer, http.StatusBadGateway, schema.ErrUpstream(operation, statusErr.Code))
	}
}
