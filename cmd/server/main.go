package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/milhasrod/gateway/internal/api"
	"github.com/milhasrod/gateway/internal/api/ops"
	"github.com/milhasrod/gateway/internal/api/portal"
	"github.com/milhasrod/gateway/internal/balance"
	"github.com/milhasrod/gateway/internal/config"
	"github.com/milhasrod/gateway/internal/guard"
	"github.com/milhasrod/gateway/internal/identity"
	"github.com/milhasrod/gateway/internal/storage"
	"github.com/milhasrod/gateway/internal/storage/bolt"
	"github.com/milhasrod/gateway/internal/storage/inmem"
	"github.com/milhasrod/gateway/internal/storage/postgres"
	"github.com/milhasrod/gateway/internal/supabase"
	"github.com/milhasrod/gateway/internal/upstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("storage_driver", cfg.StorageDriver).Str("upstream", cfg.UpstreamBaseURL).Bool("oidc", cfg.IsOIDCEnabled()).Msg("")

	// Initialize the storage driver holding the search attempt journal
	log.Info().Str("driver", cfg.StorageDriver).Msg("initializing storage...")
	driver, err := newStorageDriver(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the storage driver")
	}
	if err := driver.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the storage driver")
	}
	defer driver.Close()

	// Create the upstream API client and the balance cache
	client := upstream.New(cfg.UpstreamBaseURL, upstream.WithTimeout(cfg.UpstreamTimeout))
	balances := balance.NewCache(cfg.BalanceCacheTTL)
	balances.ScheduleSweep(time.Minute)
	defer balances.StopSweep()

	// Create the guarded search controller
	controller := guard.New(guard.Dependencies{
		Sessions: identity.ContextProvider{},
		Ledger:   client,
		Searcher: client,
		Balances: balances,
		Attempts: driver.Attempts(),
	})

	// Create the portal API
	portalService := &portal.Service{
		Config:     cfg,
		Storage:    driver,
		Controller: controller,
		Backend:    client,
		Balances:   balances,
		InFlight:   guard.NewInFlight(),
	}
	if cfg.SupabaseURL != "" {
		supabaseClient := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		portalService.MagicLinks = supabaseClient
		portalService.Verifier = &portal.SupabaseVerifier{Client: supabaseClient}
	}
	if err := portalService.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the portal API")
	}

	// Create the ops API
	opsService := &ops.Service{
		Config: cfg,
		Checks: map[string]ops.Check{
			"upstream": func(ctx context.Context) error {
				_, err := client.Status(ctx)
				return err
			},
			"storage": func(ctx context.Context) error {
				_, err := driver.Attempts().GetByRef(ctx, "readiness_check")
				return err
			},
		},
	}

	// Start up the portal & ops APIs
	log.Info().Str("portal_api", cfg.PortalAPIListenAddress).Str("ops_api", cfg.OpsAPIListenAddress).Msg("starting up portal & ops APIs...")
	apis := &api.Service{
		Portal: portalService,
		Ops:    opsService,
	}
	apiErrs := make(chan error, 1)
	apis.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the API service raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the portal & ops APIs...")
		apis.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown
}

func newStorageDriver(cfg *config.Config) (storage.Driver, error) {
	switch cfg.StorageDriver {
	case "inmem":
		return inmem.New(), nil
	case "bolt":
		return bolt.New(cfg.BoltPath), nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("storage driver 'postgres' requires a DSN")
		}
		return postgres.New(cfg.PostgresDSN), nil
	default:
		return nil, fmt.Errorf("unknown storage driver '%s'", cfg.StorageDriver)
	}
}
