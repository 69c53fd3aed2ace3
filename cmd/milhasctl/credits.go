package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/milhasrod/gateway/internal/credits"
	"github.com/milhasrod/gateway/internal/upstream"
	"github.com/spf13/cobra"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()
			balance, err := env.controller.RefreshBalance(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(map[string]int64{"balance": balance})
			}
			fmt.Printf("%d credits\n", balance)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent credit mutations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 || limit > 100 {
				return fmt.Errorf("limit must be between 1 and 100 (given %d)", limit)
			}
			env, err := newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireToken(); err != nil {
				return err
			}
			items, err := env.client.History(cmd.Context(), env.session.Token, limit)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(items)
			}
			if len(items) == 0 {
				fmt.Println("No credit mutations yet.")
				return nil
			}
			table := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(table, "DATE\tDELTA\tREASON")
			for _, item := range items {
				fmt.Fprintf(table, "%s\t%+d\t%s\n", item.CreatedAt.Local().Format("2006-01-02 15:04"), item.Delta, item.Reason)
			}
			return table.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "maximum entries (1-100)")
	return cmd
}

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the purchasable credit packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans := credits.Plans()
			if flagJSON {
				return printJSON(plans)
			}
			table := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(table, "PLAN\tCREDITS\tPRICE\t")
			for _, plan := range plans {
				marker := ""
				if plan.Popular {
					marker = "popular"
				}
				fmt.Fprintf(table, "%s\t%d\t$%d.%02d\t%s\n", plan.ID, plan.Credits, plan.PriceCents/100, plan.PriceCents%100, marker)
			}
			return table.Flush()
		},
	}
}

func checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout [plan]",
		Short: "Create a checkout session for a credit package and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := credits.PlanByID(args[0])
			if plan == nil {
				return fmt.Errorf("unknown plan '%s' (see 'milhasctl plans')", args[0])
			}
			env, err := newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireToken(); err != nil {
				return err
			}
			url, err := env.client.CreateCheckoutSession(cmd.Context(), env.session.Token, &upstream.CheckoutRequest{
				PriceID:    plan.PriceID,
				Quantity:   1,
				SuccessURL: env.cfg.FrontendURL + "/success.html",
				CancelURL:  env.cfg.FrontendURL + "/cancel.html",
			})
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(map[string]string{"url": url})
			}
			fmt.Println("Complete your purchase at:")
			fmt.Println(url)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of the MilhasRod API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()
			status, err := env.client.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
}
