package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/launchpad/internal/ui"
	"github.com/spf13/cobra"
)

var investCmd = &cobra.Command{
	Use:   "invest <id> <amount>",
	Short: "Invest in a project",
	Long: `Invest amount (payment base units) in a whitelisted project.

The allocation is amount/price sale-asset units, rounded down. In evm mode
--as must be a signing wallet: it sends the amount to custody as part of
the call.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			caller, err := a.investor()
			if err != nil {
				return err
			}
			alloc, err := a.lp.Invest(ctx, caller, id, amount)
			if err != nil {
				return err
			}
			total, err := a.lp.AllocationOf(id, caller)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Invested %s in project #%d, allocated %s", amount, id, alloc)))
			fmt.Fprintln(out, ui.Meta("Total allocation: "+total.String()))
			return nil
		})
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim <id>",
	Short: "Claim your sale-asset allocation after the sale ends",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			amount, err := a.lp.ClaimAllocation(ctx, caller, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Claimed %s from project #%d", amount, id)))
			return nil
		})
	},
}
