package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/launchpad/internal/ui"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Platform administration",
}

var adminShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show platform state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			paused := ui.StyleSuccess.Render("no")
			if a.lp.Paused() {
				paused = ui.StyleError.Render("yes")
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Launchpad", [][2]string{
				{"Admin", a.lp.Admin().Hex()},
				{"Paused", paused},
				{"Custody", a.custody.Hex()},
				{"Projects", strconv.Itoa(a.lp.ProjectCount())},
				{"Mode", cfg.Mode},
				{"Database", cfg.DBPath},
			}))
			return nil
		})
	},
}

var adminChangeCmd = &cobra.Command{
	Use:   "change <new-admin>",
	Short: "Hand the admin role to another identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			next, err := a.wallets.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := a.lp.ChangeAdmin(ctx, caller, next); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Admin is now "+ui.Addr(next.Hex())))
			return nil
		})
	},
}

var adminPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause listings, whitelisting, investments and claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			if err := a.lp.Pause(ctx, caller); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn("Launchpad paused"))
			return nil
		})
	},
}

var adminUnpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume normal operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			if err := a.lp.Unpause(ctx, caller); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Launchpad unpaused"))
			return nil
		})
	},
}

func init() {
	adminCmd.AddCommand(adminShowCmd, adminChangeCmd, adminPauseCmd, adminUnpauseCmd)
}
