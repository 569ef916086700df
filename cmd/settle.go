package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/launchpad/internal/ui"
	"github.com/spf13/cobra"
)

var (
	cancelYes bool
	sweepTo   string
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a project and return its custody balance to the owner",
	Long: `Cancel a project (admin only). The sale closes immediately and every
sale-asset unit custody holds for the project's token goes back to the
project owner. The owner can still withdraw the funds raised so far.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if !cancelYes && !ui.ConfirmDanger(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Cancel project #%d? This cannot be undone.", id)) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Aborted."))
			return nil
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			if err := a.lp.CancelProject(ctx, caller, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Project #%d cancelled", id)))
			return nil
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <id>",
	Short: "Withdraw the amount raised (owner, once the sale is over)",
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
			amount, err := a.lp.WithdrawAmountRaised(ctx, caller, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Withdrew %s raised by project #%d", amount, id)))
			return nil
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep <id>",
	Short: "Recover sale assets not owed to investors (owner, once the sale is over)",
	Long: `Transfer custody's sale-asset balance minus the unclaimed allocations to
--to (default: the caller).`,
	Args: cobra.ExactArgs(1),
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
			to := caller
			if sweepTo != "" {
				if to, err = a.wallets.Resolve(sweepTo); err != nil {
					return err
				}
			}
			amount, err := a.lp.Sweep(ctx, caller, id, to)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Swept %s to %s", amount, ui.Addr(to.Hex()))))
			return nil
		})
	},
}

func init() {
	cancelCmd.Flags().BoolVarP(&cancelYes, "yes", "y", false, "skip confirmation")
	sweepCmd.Flags().StringVar(&sweepTo, "to", "", "recipient (wallet name or address)")
}
