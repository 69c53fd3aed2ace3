package portal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/milhasrod/gateway/internal/api/portal/session"
	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/random"
)

var (
	stateLength         = 16
	nonceLength         = 16
	cookieNameState     = "login_state"
	cookieLifetimeState = int(time.Hour.Seconds())
)

var errLoginFlow = func(reason string) *schema.Error {
	return &schema.Error{
		Type:    "auth.oidc.loginFlow",
		Message: "The login flow could not be completed: " + reason,
		Details: map[string]any{
			"reason": reason,
		},
	}
}

type oidcLoginFlowState struct {
	ID         string `json:"id"`
	Nonce      string `json:"nonce"`
	Afterwards string `json:"afterwards"`
}

// EndpointOIDCLoginFlow handles the 'GET /v1/auth/oidc/login_flow?afterwards={string?}' endpoint
func (service *Service) EndpointOIDCLoginFlow(writer http.ResponseWriter, request *http.Request) {
	afterwards := service.sanitizeRedirect(request.URL.Query().Get("afterwards"))

	// Create and set the login flow state cookie
	state := oidcLoginFlowState{
		ID:         random.String(stateLength, random.CharsetAlphanumeric),
		Nonce:      random.String(nonceLength, random.CharsetAlphanumeric),
		Afterwards: afterwards,
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameState,
		Value:    base64.StdEncoding.EncodeToString(stateJSON),
		Path:     "/",
		MaxAge:   cookieLifetimeState,
		Secure:   service.Config.IsPortalAPISecure(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Redirect the user to the authentication endpoint of the OIDC provider
	http.Redirect(writer, request, service.oidcOAuth2Config.AuthCodeURL(state.ID, oidc.Nonce(state.Nonce)), http.StatusFound)
}

// EndpointOIDCLoginCallback handles the 'GET /v1/auth/oidc/callback' endpoint
func (service *Service) EndpointOIDCLoginCallback(writer http.ResponseWriter, request *http.Request) {
	// Extract the state cookie
	stateCookie, err := request.Cookie(cookieNameState)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errLoginFlow("no login flow initiated"))
		return
	}
	stateJSON, err := base64.StdEncoding.DecodeString(stateCookie.Value)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errLoginFlow("invalid state cookie"))
		return
	}
	state := new(oidcLoginFlowState)
	if err := json.Unmarshal(stateJSON, state); err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errLoginFlow("invalid state cookie"))
		return
	}

	// Validate the state ID
	if request.URL.Query().Get("state") != state.ID {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errLoginFlow("states do not match"))
		return
	}
	unsetCookie(writer, cookieNameState)

	// Retrieve the OAuth2 access token and extract and verify the ID token + nonce
	oauth2Token, err := service.oidcOAuth2Config.Exchange(request.Context(), request.URL.Query().Get("code"))
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusForbidden, errLoginFlow("invalid login code (expired?)"))
		return
	}
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		service.writer.WriteInternalError(writer, errors.New("no 'id_token' field in OAuth2 access token; most likely an OIDC provider error"))
		return
	}
	idToken, err := service.oidcIDTokenVerifier.Verify(request.Context(), rawIDToken)
	if err != nil {
		service.writer.WriteInternalError(writer, errors.New("received invalid ID token; most likely an OIDC provider error"))
		return
	}
	if idToken.Nonce != state.Nonce {
		service.writer.WriteErrors(writer, http.StatusForbidden, errLoginFlow("nonces do not match"))
		return
	}
	claims := struct {
		Email string `json:"email"`
	}{}
	if err := idToken.Claims(&claims); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	// Create the session; it never outlives the provider access token
	expires := time.Now().Add(service.Config.SessionLifetime)
	if !oauth2Token.Expiry.IsZero() && oauth2Token.Expiry.Before(expires) {
		expires = oauth2Token.Expiry
	}
	rawToken, err := service.Sessions.Create(request.Context(), &session.Create{
		UserID:      idToken.Subject,
		Email:       claims.Email,
		AccessToken: oauth2Token.AccessToken,
		Expires:     expires,
	})
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameToken,
		Value:    rawToken,
		Path:     "/",
		Expires:  expires,
		Secure:   service.Config.IsPortalAPISecure(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Redirect the user to the URL specified on login flow initiating
	http.Redirect(writer, request, state.Afterwards, http.StatusFound)
}

// sanitizeRedirect only allows redirects into the frontend; anything else leads to the frontend root
func (service *Service) sanitizeRedirect(target string) string {
	fallback := service.Config.FrontendURL + "/"
	if target == "" {
		return fallback
	}
	frontend, err := url.Parse(service.Config.FrontendURL)
	if err != nil {
		return fallback
	}
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme != frontend.Scheme || parsed.Host != frontend.Host {
		return fallback
	}
	return parsed.String()
}
