package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/launchpad/internal/ui"
	"github.com/Mohsinsiddi/launchpad/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	walletKeyFlag string
	walletYes     bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage named identities",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Long: `Add a named identity. Without --key the wallet is watch-only: a name for
an address, usable with --as in local mode. With --key the private key is
stored in the OS keychain (or the file keystore under the config dir) and
the wallet can sign in evm mode.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()

		if walletKeyFlag != "" {
			mgr, err := newWalletManager(true)
			if err != nil {
				return err
			}
			w, err := mgr.AddWithKey(name, walletKeyFlag)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address.Hex()))))
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("address required for watch-only wallet\n  Usage: launchpad wallet add <name> <address>\n  Or for signing: launchpad wallet add <name> --key <private-key>")
		}
		addr, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		mgr, err := newWalletManager(false)
		if err != nil {
			return err
		}
		if _, err := mgr.AddWatch(name, addr); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(addr.Hex()))))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager(false)
		if err != nil {
			return err
		}
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Meta("No wallets configured yet."))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "NAME", Width: 16},
			{Title: "ADDRESS", Width: 42},
			{Title: "TYPE", Width: 10},
		})
		for _, w := range wallets {
			t.AddRow(ui.Row{w.Name, w.Address.Hex(), w.Type})
		}
		fmt.Fprint(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		probe, err := newWalletManager(false)
		if err != nil {
			return err
		}
		w, err := probe.Get(name)
		if err != nil {
			return err
		}
		if !walletYes && !ui.ConfirmDanger(cmd.InOrStdin(), out, fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Fprintln(out, ui.Meta("Aborted."))
			return nil
		}
		mgr := probe
		if w.Type == wallet.TypeSigning {
			if mgr, err = newWalletManager(true); err != nil {
				return err
			}
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key (hex) for a signing wallet")
	walletRemoveCmd.Flags().BoolVarP(&walletYes, "yes", "y", false, "skip confirmation")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd)
}
