package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/milhasrod/gateway/internal/config"
	"github.com/milhasrod/gateway/internal/guard"
	"github.com/milhasrod/gateway/internal/identity"
	"github.com/milhasrod/gateway/internal/storage/bolt"
	"github.com/milhasrod/gateway/internal/upstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

// cliUserID is the user every locally journaled attempt is attributed to
const cliUserID = "cli"

var (
	flagAPI     string
	flagToken   string
	flagJSON    bool
	flagVerbose bool
	flagJournal string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "milhasctl",
		Short:         "milhasctl - search award flights and manage credits from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "base URL of the MilhasRod API (default: MILHAS_UPSTREAM_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", os.Getenv("MILHAS_TOKEN"), "access token (default: MILHAS_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagJournal, "journal", "", "bolt file journaling every search attempt (disabled if empty)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log upstream requests")

	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(checkoutCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(attemptsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

// environment bundles everything a command needs to talk to the API
type environment struct {
	cfg        *config.Config
	client     *upstream.Client
	session    *identity.Session
	journal    *bolt.Driver
	controller *guard.Controller
}

func newEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	baseURL := cfg.UpstreamBaseURL
	if flagAPI != "" {
		baseURL = flagAPI
	}

	client := upstream.New(baseURL, upstream.WithTimeout(cfg.UpstreamTimeout))
	session := &identity.Session{Token: flagToken, UserID: cliUserID}
	deps := guard.Dependencies{
		Sessions: &identity.StaticProvider{Session: session},
		Ledger:   client,
		Searcher: client,
	}

	var journal *bolt.Driver
	if flagJournal != "" {
		journal = bolt.New(flagJournal)
		if err := journal.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		deps.Attempts = journal.Attempts()
	}

	return &environment{
		cfg:        cfg,
		client:     client,
		session:    session,
		journal:    journal,
		controller: guard.New(deps),
	}, nil
}

// Close releases the journal if one was opened
func (env *environment) Close() {
	if env.journal != nil {
		env.journal.Close()
	}
}

// requireToken fails early for commands that need an authenticated session
func (env *environment) requireToken() error {
	if env.session.Token == "" {
		return guard.ErrNotAuthenticated
	}
	return nil
}

func printJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// describe turns the errors of the guarded search flow into messages for the user
func describe(err error) string {
	var searchErr *guard.SearchFailedError
	var spendErr *guard.SpendFailedError
	switch {
	case errors.Is(err, guard.ErrNotAuthenticated):
		return "not logged in; pass --token or set MILHAS_TOKEN"
	case errors.Is(err, guard.ErrInsufficientCredits):
		return "not enough credits; buy more with 'milhasctl checkout <plan>'"
	case errors.As(err, &spendErr):
		return fmt.Sprintf("could not spend credits (ref %s): %v", spendErr.Ref, spendErr.Cause)
	case errors.As(err, &searchErr) && searchErr.RefundUncertain:
		return fmt.Sprintf("search failed and the refund could not be confirmed (ref %s); your balance may be off by one credit: %v", searchErr.Ref, searchErr.Cause)
	case errors.As(err, &searchErr):
		return fmt.Sprintf("search failed, your credit was refunded (ref %s): %v", searchErr.Ref, searchErr.Cause)
	default:
		return err.Error()
	}
}
