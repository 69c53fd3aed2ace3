package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/identity"
	"github.com/milhasrod/gateway/internal/supabase"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/oauth2"
)

var cookieNameToken = "session_token"

// errVerifierUnavailable marks bearer verification failures that say nothing about the token itself
var errVerifierUnavailable = errors.New("token verifier unavailable")

// TokenVerifier resolves the identity behind a bearer access token.
// Returns identity.ErrNoSession if the token is not accepted.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Session, error)
}

// OIDCVerifier verifies access tokens against the userinfo endpoint of an OIDC provider
type OIDCVerifier struct {
	Provider *oidc.Provider

	// Transport is used for the userinfo request. http.DefaultTransport is used if nil.
	Transport http.RoundTripper
}

var _ TokenVerifier = (*OIDCVerifier)(nil)

// Verify resolves the token owner using the provider's userinfo endpoint.
// Only a 401 or 403 answer counts as a rejected token; other failures are returned as they are.
func (verifier *OIDCVerifier) Verify(ctx context.Context, token string) (*identity.Session, error) {
	recorder := &statusRecorder{next: http.DefaultTransport}
	if verifier.Transport != nil {
		recorder.next = verifier.Transport
	}
	ctx = oidc.ClientContext(ctx, &http.Client{Transport: recorder})

	info, err := verifier.Provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	if err != nil {
		if recorder.status == http.StatusUnauthorized || recorder.status == http.StatusForbidden {
			return nil, errors.Join(identity.ErrNoSession, err)
		}
		return nil, err
	}
	return &identity.Session{
		Token:  token,
		UserID: info.Subject,
		Email:  info.Email,
	}, nil
}

// statusRecorder remembers the status code of the last response passing through it
type statusRecorder struct {
	next   http.RoundTripper
	status int
}

func (recorder *statusRecorder) RoundTrip(request *http.Request) (*http.Response, error) {
	response, err := recorder.next.RoundTrip(request)
	if err == nil {
		recorder.status = response.StatusCode
	}
	return response, err
}

// SupabaseVerifier verifies Supabase access tokens (as held by the frontend's Supabase client)
type SupabaseVerifier struct {
	Client *supabase.Client
}

var _ TokenVerifier = (*SupabaseVerifier)(nil)

// Verify resolves the token owner using the Supabase user endpoint
func (verifier *SupabaseVerifier) Verify(ctx context.Context, token string) (*identity.Session, error) {
	user, err := verifier.Client.User(ctx, token)
	if err != nil {
		if errors.Is(err, supabase.ErrInvalidToken) {
			return nil, identity.ErrNoSession
		}
		return nil, err
	}
	return &identity.Session{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
	}, nil
}

// MiddlewareVerifySession makes sure that the requesting client is authenticated, either using the session cookie or
// a bearer token. The resolved identity is injected into the request context.
func (service *Service) MiddlewareVerifySession(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		request, ok := service.verifySession(writer, request)
		if !ok {
			return
		}

		// Delegate to the next handler
		next(writer, request)
	}
}

// verifySession resolves the identity of the request and returns the request carrying it.
// If false is returned, an error response has already been written.
func (service *Service) verifySession(writer http.ResponseWriter, request *http.Request) (*http.Request, bool) {
	ident, err := service.authenticate(request)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNoSession):
			hlog.FromRequest(request).Debug().Err(err).Msg("rejected bearer token")
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
		case errors.Is(err, errVerifierUnavailable):
			hlog.FromRequest(request).Warn().Err(err).Msg("could not verify bearer token")
			service.writer.WriteErrors(writer, http.StatusBadGateway, schema.ErrUpstream("auth", 0))
		default:
			service.writer.WriteInternalError(writer, err)
		}
		return nil, false
	}
	if ident == nil {
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
		return nil, false
	}
	return request.WithContext(identity.WithSession(request.Context(), ident)), true
}

func (service *Service) authenticate(request *http.Request) (*identity.Session, error) {
	// Prefer the session cookie set by the login flow
	if cookie, err := request.Cookie(cookieNameToken); err == nil && cookie.Value != "" {
		ses, err := service.Sessions.GetByRawToken(request.Context(), cookie.Value)
		if err != nil {
			return nil, err
		}
		if ses != nil {
			return &identity.Session{
				Token:  ses.AccessToken,
				UserID: ses.UserID,
				Email:  ses.Email,
			}, nil
		}
	}

	// Fall back to a bearer token
	header := request.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") || service.Verifier == nil {
		return nil, nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, nil
	}
	ident, err := service.Verifier.Verify(request.Context(), token)
	if err != nil && !errors.Is(err, identity.ErrNoSession) {
		return nil, fmt.Errorf("%w: %w", errVerifierUnavailable, err)
	}
	return ident, err
}

// EndpointLogout handles the 'POST /v1/auth/logout' endpoint
func (service *Service) EndpointLogout(writer http.ResponseWriter, request *http.Request) {
	ident := identity.FromContext(request.Context())

	if cookie, err := request.Cookie(cookieNameToken); err == nil && cookie.Value != "" {
		if err := service.Sessions.TerminateByRawToken(request.Context(), cookie.Value); err != nil {
			service.writer.WriteInternalError(writer, err)
			return
		}
	}
	unsetCookie(writer, cookieNameToken)
	if service.Balances != nil {
		service.Balances.Invalidate(ident.UserID)
	}
	writer.WriteHeader(http.StatusNoContent)
}

type endpointGetSelfResponse struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email,omitempty"`
	UncertainRefunds uint64 `json:"uncertain_refunds"`
}

// EndpointGetSelf handles the 'GET /v1/me' endpoint
func (service *Service) EndpointGetSelf(writer http.ResponseWriter, request *http.Request) {
	ident := identity.FromContext(request.Context())

	uncertain, err := service.Storage.Attempts().CountUncertain(request.Context(), ident.UserID)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	service.writer.WriteJSON(writer, &endpointGetSelfResponse{
		UserID:           ident.UserID,
		Email:            ident.Email,
		UncertainRefunds: uncertain,
	})
}

func unsetCookie(writer http.ResponseWriter, name string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}
