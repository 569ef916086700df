package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/launchpad/internal/token"
	"github.com/Mohsinsiddi/launchpad/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	fundTo       string
	fundNative   bool
	balanceAsset string
)

var fundCmd = &cobra.Command{
	Use:   "fund <asset> <amount>",
	Short: "Mint a sale asset into custody",
	Long: `Mint amount base units of asset. By default the tokens go to custody so
projects using that asset can accept investments.

In local mode --native mints the payment currency instead, and --to sends
the minted units elsewhere, e.g. to give an investor funds to invest. In
evm mode the custody wallet must be allowed to mint the ERC-20.

Examples:
  launchpad fund 0x5FbD... 100
  launchpad fund --native --to alice 1000`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var asset common.Address
		amountArg := args[len(args)-1]
		switch {
		case fundNative && len(args) == 1:
			asset = token.Native
		case !fundNative && len(args) == 2:
			var err error
			if asset, err = parseAddress(args[0]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("usage: launchpad fund <asset> <amount> | launchpad fund --native <amount>")
		}
		amount, err := parseAmount(amountArg)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			to := a.custody
			if fundTo != "" {
				if to, err = a.wallets.Resolve(fundTo); err != nil {
					return err
				}
			}
			if err := a.funds.Mint(ctx, asset, to, amount); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Minted %s of %s to %s", amount, assetLabel(asset), ui.Addr(to.Hex()))))
			return nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [holder]",
	Short: "Show a balance (default: native currency of --as, or custody)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asset := token.Native
		if balanceAsset != "" {
			var err error
			if asset, err = parseAddress(balanceAsset); err != nil {
				return err
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			var (
				holder common.Address
				err    error
			)
			switch {
			case len(args) == 1:
				holder, err = a.wallets.Resolve(args[0])
			case asFlag != "":
				holder, err = a.caller()
			default:
				holder = a.custody
			}
			if err != nil {
				return err
			}
			bal, err := a.funds.BalanceOf(ctx, asset, holder)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Balance", [][2]string{
				{"Holder", holder.Hex()},
				{"Asset", assetLabel(asset)},
				{"Amount", bal.String()},
			}))
			return nil
		})
	},
}

func assetLabel(asset common.Address) string {
	if asset == token.Native {
		return "native"
	}
	return asset.Hex()
}

func init() {
	fundCmd.Flags().StringVar(&fundTo, "to", "", "recipient (default: custody)")
	fundCmd.Flags().BoolVar(&fundNative, "native", false, "mint the payment currency (local mode)")
	balanceCmd.Flags().StringVar(&balanceAsset, "asset", "", "token address (default: native currency)")
}
