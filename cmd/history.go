package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/launchpad/internal/ui"
	"github.com/spf13/cobra"
)

var (
	historyLimit   int
	historyProject uint64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the ledger journal, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			limit := historyLimit
			if historyProject != 0 {
				limit = 0 // filter first, then cut
			}
			events, err := a.lp.Events(ctx, limit)
			if err != nil {
				return err
			}
			if historyProject != 0 {
				events = eventsFor(events, historyProject)
				if historyLimit > 0 && len(events) > historyLimit {
					events = events[:historyLimit]
				}
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, ui.Meta("No events."))
				return nil
			}
			fmt.Fprint(out, ui.EventTable(events))
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum events to show (0 for all)")
	historyCmd.Flags().Uint64Var(&historyProject, "project", 0, "only events for this project")
}
