package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/milhasrod/gateway/internal/search"
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var (
		query       search.Query
		premiumOnly bool
		details     bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search award availability (costs one credit)",
		Long: `Search award availability across mileage programs.

One credit is spent per search. If the search fails, the credit is refunded.

Examples:
  milhasctl search --from GRU --to LIS --date 2026-11-02
  milhasctl search --from GRU --to LIS --date 2026-11-02 --days 14 --cabins J,F --programs smiles,azul`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			outcome, err := env.controller.ExecuteGuardedSearch(cmd.Context(), &query)
			if err != nil {
				return err
			}
			if premiumOnly && outcome.Result != nil {
				outcome.Result = outcome.Result.PremiumOnly()
			}
			result := outcome.Result

			if flagJSON {
				return printJSON(outcome)
			}
			if result == nil || result.Empty() {
				fmt.Println("No availability found.")
			} else {
				table := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(table, "DATE\tCABIN\tPROGRAM\tMILES\tID")
				for _, day := range result.CheapestDays {
					fmt.Fprintf(table, "%s\t%s\t%s\t%d\t%s\n", day.Date, day.Cabin, day.Source, day.MileageCost, day.AvailabilityID)
				}
				if err := table.Flush(); err != nil {
					return err
				}
				if details {
					fmt.Println()
					for _, line := range availabilityDetails(result) {
						fmt.Println(line)
					}
				}
			}
			if outcome.Balance != nil {
				fmt.Printf("\n%d credits left (ref %s)\n", *outcome.Balance, outcome.Ref)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&query.Origin, "from", "", "origin airport (IATA)")
	cmd.Flags().StringVar(&query.Destination, "to", "", "destination airport (IATA)")
	cmd.Flags().StringVar(&query.StartDate, "date", "", "first day to search (YYYY-MM-DD)")
	cmd.Flags().IntVar(&query.Days, "days", 7, fmt.Sprintf("amount of days to search (%d-%d)", search.MinDays, search.MaxDays))
	cmd.Flags().StringSliceVar(&query.Cabins, "cabins", []string{"Y", "W", "J", "F"}, "cabins to search (Y, W, J, F)")
	cmd.Flags().StringSliceVar(&query.Sources, "programs", nil, "mileage programs to search (default: all)")
	cmd.Flags().BoolVar(&premiumOnly, "premium-only", false, "only show business and first class")
	cmd.Flags().BoolVar(&details, "details", false, "print the raw availability of every listed day")
	return cmd
}

// availabilityDetails resolves the availability entry behind every listed day
func availabilityDetails(result *search.Result) []string {
	index := result.AvailabilityIndex()
	lines := make([]string, 0, len(result.CheapestDays))
	for _, day := range result.CheapestDays {
		if day.AvailabilityID == "" {
			continue
		}
		raw, ok := index[day.AvailabilityID]
		if !ok {
			lines = append(lines, fmt.Sprintf("%s: no details available", day.AvailabilityID))
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			compact.Reset()
			compact.Write(raw)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", day.AvailabilityID, compact.String()))
	}
	return lines
}
