package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func attemptsCmd() *cobra.Command {
	var limit uint64
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List the search attempts recorded in the local journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagJournal == "" {
				return errors.New("no journal configured; pass --journal")
			}
			env, err := newEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			attempts, total, err := env.journal.Attempts().GetByUserID(cmd.Context(), cliUserID, 0, limit)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(attempts)
			}
			if total == 0 {
				fmt.Println("No search attempts recorded.")
				return nil
			}

			table := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(table, "REF\tROUTE\tDATE\tSTATUS\tCAUSE")
			for _, obj := range attempts {
				fmt.Fprintf(table, "%s\t%s-%s\t%s\t%s\t%s\n", obj.Ref, obj.Origin, obj.Destination, obj.StartDate, obj.Status, obj.Cause)
			}
			if err := table.Flush(); err != nil {
				return err
			}
			if uint64(len(attempts)) < total {
				fmt.Printf("\nshowing %d of %d attempts\n", len(attempts), total)
			}
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 20, "maximum attempts to show")
	return cmd
}
