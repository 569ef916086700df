package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/launchpad/internal/ui"
	"github.com/spf13/cobra"
)

var (
	initMode          string
	initAdmin         string
	initCustody       string
	initCustodyWallet string
	initRPCURL        string
	initChainID       int64
	initDBPath        string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure launchpad and create the ledger",
	Long: `Write config.json and create the ledger with its first admin.

Flags only override what is already configured, so init can be re-run to
change the backend. The admin is fixed when the ledger is first created;
use "launchpad admin change" afterwards.

Examples:
  launchpad init --admin 0xA11CE... --custody 0xC0FFEE...
  launchpad init --mode evm --rpc-url http://127.0.0.1:8545 --chain-id 31337 \
      --custody-wallet custody --admin 0xA11CE...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		set := func(flag string, dst *string, v string) {
			if cmd.Flags().Changed(flag) {
				*dst = v
			}
		}
		set("mode", &cfg.Mode, initMode)
		set("admin", &cfg.Admin, initAdmin)
		set("custody", &cfg.Custody, initCustody)
		set("custody-wallet", &cfg.CustodyWallet, initCustodyWallet)
		set("rpc-url", &cfg.RPCURL, initRPCURL)
		set("db", &cfg.DBPath, initDBPath)
		if cmd.Flags().Changed("chain-id") {
			cfg.ChainID = initChainID
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Success("Launchpad ready."))
			fmt.Fprintln(out, ui.KeyValueBlock("Ledger", [][2]string{
				{"Mode", cfg.Mode},
				{"Database", cfg.DBPath},
				{"Admin", a.lp.Admin().Hex()},
				{"Custody", a.custody.Hex()},
				{"Projects", fmt.Sprint(a.lp.ProjectCount())},
			}))
			return nil
		})
	},
}

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", "", `backend: "local" or "evm"`)
	initCmd.Flags().StringVar(&initAdmin, "admin", "", "first admin (wallet name or address)")
	initCmd.Flags().StringVar(&initCustody, "custody", "", "custody identity, local mode")
	initCmd.Flags().StringVar(&initCustodyWallet, "custody-wallet", "", "signing wallet holding custody, evm mode")
	initCmd.Flags().StringVar(&initRPCURL, "rpc-url", "", "JSON-RPC endpoint, evm mode")
	initCmd.Flags().Int64Var(&initChainID, "chain-id", 0, "chain id, evm mode")
	initCmd.Flags().StringVar(&initDBPath, "db", "", "ledger database path")
}
