package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/api/validation"
	"github.com/milhasrod/gateway/internal/identity"
	"github.com/milhasrod/gateway/internal/search"
)

type endpointSearchRequestPayload struct {
	Origin      *string  `json:"origin" required:"true"`
	Destination *string  `json:"destination" required:"true"`
	StartDate   *string  `json:"start_date" required:"true"`
	Days        *int     `json:"days" required:"true"`
	Cabins      []string `json:"cabins" required:"true"`
	Sources     []string `json:"sources"`
	PremiumOnly bool     `json:"premium_only"`
}

type endpointSearchResponse struct {
	Ref     string         `json:"ref"`
	Balance *int64         `json:"balance,omitempty"`
	Result  *search.Result `json:"result"`
}

// EndpointSearch handles the 'POST /v1/search' endpoint.
// One credit is spent per search; it is refunded if the search fails.
// The query is validated before the session is resolved, so an invalid query never leaves the gateway.
func (service *Service) EndpointSearch(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := validation.UnmarshalBody[endpointSearchRequestPayload](writer, request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	query := &search.Query{
		Origin:      *payload.Origin,
		Destination: *payload.Destination,
		StartDate:   *payload.StartDate,
		Days:        *payload.Days,
		Cabins:      payload.Cabins,
		Sources:     payload.Sources,
	}
	query.Normalize()
	if err := query.Validate(); err != nil {
		service.writeGuardError(writer, err)
		return
	}

	request, ok := service.verifySession(writer, request)
	if !ok {
		return
	}

	// Reject a second submit while the first one is still running
	ident := identity.FromContext(request.Context())
	release, ok := service.InFlight.Acquire(ident.UserID)
	if !ok {
		service.writer.WriteErrors(writer, http.StatusConflict, schema.ErrSearchInFlight)
		return
	}
	defer release()

	outcome, err := service.Controller.ExecuteGuardedSearch(request.Context(), query)
	if err != nil {
		service.writeGuardError(writer, err)
		return
	}

	result := outcome.Result
	if result == nil {
		result = &search.Result{CheapestDays: []*search.Day{}}
	} else if payload.PremiumOnly {
		result = result.PremiumOnly()
	}
	service.writer.WriteJSON(writer, &endpointSearchResponse{
		Ref:     outcome.Ref,
		Balance: outcome.Balance,
		Result:  result,
	})
}

// EndpointGetTrip handles the 'GET /v1/trips/{id}' endpoint
func (service *Service) EndpointGetTrip(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")

	ident := identity.FromContext(request.Context())
	trip, err := service.Backend.Trip(request.Context(), ident.Token, id)
	if err != nil {
		service.writeUpstreamError(writer, request, "trip", err)
		return
	}

	service.writer.WriteJSON(writer, trip)
}

// EndpointGetAirports handles the 'GET /v1/airports?q={string}' endpoint
func (service *Service) EndpointGetAirports(writer http.ResponseWriter, request *http.Request) {
	term, validationErr := validation.QueryString(request, "q", true, 64)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	ident := identity.FromContext(request.Context())
	airports, err := service.Backend.Airports(request.Context(), ident.Token, term)
	if err != nil {
		service.writeUpstreamError(writer, request, "airports", err)
		return
	}

	service.writer.WriteJSON(writer, airports)
}
