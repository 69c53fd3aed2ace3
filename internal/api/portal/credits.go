package portal

import (
	"errors"
	"math"
	"net/http"

	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/api/validation"
	"github.com/milhasrod/gateway/internal/credits"
	"github.com/milhasrod/gateway/internal/guard"
	"github.com/milhasrod/gateway/internal/identity"
	"github.com/milhasrod/gateway/internal/upstream"
)

var errUnknownPlan = func(plan string) *schema.Error {
	return &schema.Error{
		Type:    "validation.checkout.unknownPlan",
		Message: "The requested credit plan does not exist.",
		Details: map[string]any{
			"plan": plan,
		},
	}
}

type endpointGetBalanceResponse struct {
	Balance int64 `json:"balance"`
}

// EndpointGetBalance handles the 'GET /v1/credits?fresh={bool?:false}' endpoint
func (service *Service) EndpointGetBalance(writer http.ResponseWriter, request *http.Request) {
	fresh, validationErr := validation.QueryBool(request, "fresh", false)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	var balance int64
	var err error
	if fresh {
		balance, err = service.Controller.RefreshBalance(request.Context())
	} else {
		balance, err = service.Controller.Balance(request.Context())
	}
	if err != nil {
		if errors.Is(err, guard.ErrNotAuthenticated) {
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
			return
		}
		service.writeUpstreamError(writer, request, "balance", err)
		return
	}

	service.writer.WriteJSON(writer, &endpointGetBalanceResponse{Balance: balance})
}

type endpointGetHistoryResponse struct {
	Items []*credits.HistoryEntry `json:"items"`
}

// EndpointGetHistory handles the 'GET /v1/credits/history?limit={number?:30}' endpoint
func (service *Service) EndpointGetHistory(writer http.ResponseWriter, request *http.Request) {
	limit, validationErr := validation.QueryNumber(request, "limit", false, 30, 1, 100)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	ident := identity.FromContext(request.Context())
	items, err := service.Backend.History(request.Context(), ident.Token, int(limit))
	if err != nil {
		service.writeUpstreamError(writer, request, "history", err)
		return
	}
	if items == nil {
		items = []*credits.HistoryEntry{}
	}

	service.writer.WriteJSON(writer, &endpointGetHistoryResponse{Items: items})
}

// EndpointGetAttempts handles the 'GET /v1/credits/attempts?offset={number?:0}&limit={number?:10}' endpoint
func (service *Service) EndpointGetAttempts(writer http.ResponseWriter, request *http.Request) {
	var validationErrs []*schema.Error

	offset, validationErr := validation.QueryNumber(request, "offset", false, 0, 0, math.MaxInt64)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	limit, validationErr := validation.QueryNumber(request, "limit", false, 10, 1, 100)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	ident := identity.FromContext(request.Context())
	attempts, n, err := service.Storage.Attempts().GetByUserID(request.Context(), ident.UserID, uint64(offset), uint64(limit))
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	service.writer.WriteJSON(writer, schema.BuildPaginatedResponse(uint64(offset), uint64(limit), n, attempts))
}

// EndpointGetPlans handles the 'GET /v1/credits/plans' endpoint
func (service *Service) EndpointGetPlans(writer http.ResponseWriter, _ *http.Request) {
	service.writer.WriteJSON(writer, credits.Plans())
}

type endpointCreateCheckoutRequestPayload struct {
	Plan *string `json:"plan" required:"true"`
}

type endpointCreateCheckoutResponse struct {
	URL string `json:"url"`
}

// EndpointCreateCheckout handles the 'POST /v1/checkout' endpoint
func (service *Service) EndpointCreateCheckout(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := validation.UnmarshalBody[endpointCreateCheckoutRequestPayload](writer, request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	plan := credits.PlanByID(*payload.Plan)
	if plan == nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errUnknownPlan(*payload.Plan))
		return
	}

	ident := identity.FromContext(request.Context())
	url, err := service.Backend.CreateCheckoutSession(request.Context(), ident.Token, &upstream.CheckoutRequest{
		PriceID:    plan.PriceID,
		Quantity:   1,
		SuccessURL: service.Config.FrontendURL + "/success.html",
		CancelURL:  service.Config.FrontendURL + "/cancel.html",
	})
	if err != nil {
		service.writeUpstreamError(writer, request, "checkout", err)
		return
	}

	// Credits are granted by the payment webhook on the upstream side; the cached balance is stale from here on
	if service.Balances != nil {
		service.Balances.Invalidate(ident.UserID)
	}
	service.writer.WriteJSON(writer, &endpointCreateCheckoutResponse{URL: url})
}
