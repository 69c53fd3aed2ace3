package portal

import (
	"net/http"
	"net/mail"

	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/api/validation"
)

var errInvalidEmail = &schema.Error{
	Type:    "validation.auth.invalidEmail",
	Message: "The given email address is not valid.",
	Details: map[string]any{},
}

type endpointSendMagicLinkRequestPayload struct {
	Email      *string `json:"email" required:"true"`
	Afterwards string  `json:"afterwards"`
}

// EndpointSendMagicLink handles the 'POST /v1/auth/magic_link' endpoint
func (service *Service) EndpointSendMagicLink(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := validation.UnmarshalBody[endpointSendMagicLinkRequestPayload](writer, request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	address, err := mail.ParseAddress(*payload.Email)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errInvalidEmail)
		return
	}

	if err := service.MagicLinks.SendMagicLink(request.Context(), address.Address, service.sanitizeRedirect(payload.Afterwards)); err != nil {
		service.writeUpstreamError(writer, request, "magicLink", err)
		return
	}
	writer.WriteHeader(http.StatusAccepted)
}
