package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/milhasrod/gateway/internal/api/portal/session"
	"github.com/milhasrod/gateway/internal/api/portal/session/storage/inmem"
	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/balance"
	"github.com/milhasrod/gateway/internal/config"
	"github.com/milhasrod/gateway/internal/credits"
	"github.com/milhasrod/gateway/internal/guard"
	"github.com/milhasrod/gateway/internal/metrics"
	"github.com/milhasrod/gateway/internal/storage"
	"github.com/milhasrod/gateway/internal/task"
	"github.com/milhasrod/gateway/internal/upstream"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Backend represents the MilhasRod API operations the portal API forwards to
type Backend interface {
	History(ctx context.Context, token string, limit int) ([]*credits.HistoryEntry, error)
	Trip(ctx context.Context, token, availabilityID string) (json.RawMessage, error)
	Airports(ctx context.Context, token, term string) (json.RawMessage, error)
	CreateCheckoutSession(ctx context.Context, token string, checkout *upstream.CheckoutRequest) (string, error)
}

// MagicLinkSender sends passwordless sign-in links
type MagicLinkSender interface {
	SendMagicLink(ctx context.Context, email, redirectTo string) error
}

// Service represents the portal API service the frontend talks to
type Service struct {
	server *http.Server

	Config  *config.Config
	Storage storage.Driver

	Controller *guard.Controller
	Backend    Backend
	Balances   *balance.Cache
	InFlight   *guard.InFlight

	// MagicLinks is optional; the magic link endpoint is only served if it is set
	MagicLinks MagicLinkSender

	// Verifier is optional; bearer tokens are only accepted if it is set
	Verifier TokenVerifier

	// Sessions holds the cookie sessions. An in-memory storage is created by Initialize if nil.
	Sessions session.Storage

	oidcOAuth2Config    *oauth2.Config
	oidcIDTokenVerifier *oidc.IDTokenVerifier
	sessionCleanup      *task.RepeatingTask

	writer *schema.Writer
}

// Initialize prepares the OIDC login flow (if configured) and the session storage
func (service *Service) Initialize(ctx context.Context) error {
	if service.Sessions == nil {
		sessionStorage, err := inmem.New()
		if err != nil {
			return err
		}
		service.Sessions = sessionStorage
	}

	// Terminate expired sessions periodically
	service.sessionCleanup = task.NewRepeating("session-cleanup", func() {
		n, err := service.Sessions.TerminateExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not terminate expired sessions")
			return
		}
		if n > 0 {
			log.Debug().Int("amount", n).Msg("terminated expired sessions")
		}
	}, time.Minute)
	service.sessionCleanup.Start()

	if !service.Config.IsOIDCEnabled() {
		return nil
	}

	// Create the OIDC provider & ID token verifier
	oidcProvider, err := oidc.NewProvider(ctx, service.Config.OIDCProviderURL)
	if err != nil {
		return err
	}
	service.oidcIDTokenVerifier = oidcProvider.Verifier(&oidc.Config{
		ClientID: service.Config.OIDCClientID,
	})
	if service.Verifier == nil {
		service.Verifier = &OIDCVerifier{Provider: oidcProvider}
	}

	// Create the OAuth2 config
	service.oidcOAuth2Config = &oauth2.Config{
		ClientID:     service.Config.OIDCClientID,
		ClientSecret: service.Config.OIDCClientSecret,
		Endpoint:     oidcProvider.Endpoint(),
		RedirectURL:  service.Config.PortalAPIBaseAddress + "/v1/auth/oidc/callback",
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	return nil
}

// Handler builds the HTTP handler serving the portal API
func (service *Service) Handler() http.Handler {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the portal API experienced an unexpected error")
		},
	}

	if service.InFlight == nil {
		service.InFlight = guard.NewInFlight()
	}

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(hlog.NewHandler(log.Logger))
	router.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	router.Use(hlog.AccessHandler(func(request *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(request).Debug().
			Str("method", request.Method).
			Stringer("url", request.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("handled request")
	}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RedirectSlashes)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{service.Config.AllowedOrigin()},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the authentication endpoints
	if service.oidcOAuth2Config != nil {
		router.Get("/v1/auth/oidc/login_flow", service.EndpointOIDCLoginFlow)
		router.Get("/v1/auth/oidc/callback", service.EndpointOIDCLoginCallback)
	}
	if service.MagicLinks != nil {
		router.Post("/v1/auth/magic_link", service.EndpointSendMagicLink)
	}
	router.Post("/v1/auth/logout", withMiddlewares(service.EndpointLogout, service.MiddlewareVerifySession))
	router.Get("/v1/me", withMiddlewares(service.EndpointGetSelf, service.MiddlewareVerifySession))

	// Register the credit endpoints
	router.Get("/v1/credits", withMiddlewares(service.EndpointGetBalance, service.MiddlewareVerifySession))
	router.Get("/v1/credits/history", withMiddlewares(service.EndpointGetHistory, service.MiddlewareVerifySession))
	router.Get("/v1/credits/attempts", withMiddlewares(service.EndpointGetAttempts, service.MiddlewareVerifySession))
	router.Get("/v1/credits/plans", service.EndpointGetPlans)
	router.Post("/v1/checkout", withMiddlewares(service.EndpointCreateCheckout, service.MiddlewareVerifySession))

	// Register the search endpoints
	router.Post("/v1/search", service.EndpointSearch)
	router.Get("/v1/trips/{id}", withMiddlewares(service.EndpointGetTrip, service.MiddlewareVerifySession))
	router.Get("/v1/airports", withMiddlewares(service.EndpointGetAirports, service.MiddlewareVerifySession))

	return router
}

// Startup starts up the portal API
func (service *Service) Startup() error {
	server := &http.Server{
		Addr:              service.Config.PortalAPIListenAddress,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	service.server = server
	return server.ListenAndServe()
}

// Shutdown shuts down the portal API
func (service *Service) Shutdown() {
	if service.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := service.server.Shutdown(ctx); err != nil {
			service.server.Close()
		}
		service.server = nil
	}
	if service.sessionCleanup != nil {
		service.sessionCleanup.Stop(false)
		service.sessionCleanup = nil
	}
}

func withMiddlewares(end http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	final := end
	for i := len(middlewares); i > 0; i-- {
		final = middlewares[i-1](final)
	}
	return final
}
