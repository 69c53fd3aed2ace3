package ops

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/milhasrod/gateway/internal/api/schema"
	"github.com/milhasrod/gateway/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Check represents a single readiness check
type Check func(ctx context.Context) error

// Service represents the operational API (health, readiness and metrics)
type Service struct {
	server *http.Server

	Config *config.Config

	// Checks are run on every readiness request, keyed by their name
	Checks map[string]Check

	writer *schema.Writer
}

type readinessResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Handler builds the HTTP handler serving the operational API
func (service *Service) Handler() http.Handler {
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the ops API experienced an unexpected error")
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/health", service.EndpointHealth)
	router.Get("/ready", service.EndpointReady)
	router.Handle("/metrics", promhttp.Handler())
	return router
}

// EndpointHealth handles the 'GET /health' endpoint
func (service *Service) EndpointHealth(writer http.ResponseWriter, _ *http.Request) {
	service.writer.WriteJSON(writer, map[string]string{"status": "ok"})
}

// EndpointReady handles the 'GET /ready' endpoint
func (service *Service) EndpointReady(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(service.Checks))
	for name := range service.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response := &readinessResponse{
		Ready:  true,
		Checks: make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := service.Checks[name](ctx); err != nil {
			log.Warn().Err(err).Str("check", name).Msg("readiness check failed")
			response.Ready = false
			response.Checks[name] = err.Error()
			continue
		}
		response.Checks[name] = "ok"
	}

	code := http.StatusOK
	if !response.Ready {
		code = http.StatusServiceUnavailable
	}
	service.writer.WriteJSONCode(writer, code, response)
}

// Startup starts up the operational API
func (service *Service) Startup() error {
	server := &http.Server{
		Addr:              service.Config.OpsAPIListenAddress,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	service.server = server
	return server.ListenAndServe()
}

// Shutdown shuts down the operational API
func (service *Service) Shutdown() {
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
}
