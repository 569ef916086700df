package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/launchpad/internal/config"
	"github.com/Mohsinsiddi/launchpad/internal/logging"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/launchpad/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir  string
	cfg     *config.Config
	asFlag  string
	verbose bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "Fundraising launchpad ledger",
	Long: `launchpad runs token sales: owners list projects with a price, investment
bounds and a hard cap, whitelisted investors buy allocations, and after the
sale closes owners withdraw the raised funds while investors claim tokens.

Every state change is recorded in a local SQLite ledger. In "local" mode
balances live in the same database; in "evm" mode sale assets are ERC-20
contracts and payouts are native transfers from the custody wallet.

The acting identity is passed with --as (wallet name or address).`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		return logging.SetLevel(level)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// LAUNCHPAD_CONFIG_DIR env var overrides --config flag.
	if envDir := os.Getenv("LAUNCHPAD_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.launchpad)")
	rootCmd.PersistentFlags().StringVar(&asFlag, "as", "", "acting identity: wallet name or address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		initCmd,
		projectCmd,
		listCmd,
		investCmd,
		claimCmd,
		cancelCmd,
		withdrawCmd,
		sweepCmd,
		adminCmd,
		fundCmd,
		balanceCmd,
		historyCmd,
		walletCmd,
	)
}
