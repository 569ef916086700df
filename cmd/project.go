package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/Mohsinsiddi/launchpad/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	listAsset     string
	listPrice     string
	listMin       string
	listMax       string
	listCap       string
	listEnds      string
	listWhitelist string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect projects and manage whitelists",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			out := cmd.OutOrStdout()
			projects := a.lp.Projects()
			if len(projects) == 0 {
				fmt.Fprintln(out, ui.Meta("No projects listed yet."))
				return nil
			}
			fmt.Fprint(out, ui.ProjectTable(projects, time.Now()))
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d project(s)", len(projects))))
			return nil
		})
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project with its whitelist and investor positions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			p, err := a.lp.Project(id)
			if err != nil {
				return err
			}
			held, err := a.funds.BalanceOf(ctx, p.SaleAsset, a.custody)
			if err != nil {
				held = nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.ProjectBlock(p, time.Now(), held))

			t := ui.NewTable([]ui.Column{
				{Title: "INVESTOR", Width: 42},
				{Title: "INVESTED", Width: 16, Right: true},
				{Title: "ALLOCATED", Width: 16, Right: true},
				{Title: "CLAIMED", Width: 16, Right: true},
			})
			for _, addr := range p.WhitelistSorted() {
				pos := p.Position(addr)
				t.AddRow(ui.Row{addr.Hex(), pos.Invested.String(), pos.Allocated.String(), pos.Claimed.String()})
			}
			fmt.Fprint(out, t.Render())
			return nil
		})
	},
}

var projectAddInvestorCmd = &cobra.Command{
	Use:   "add-investor <id> <investor>",
	Short: "Whitelist an investor (project owner only)",
	Args:  cobra.ExactArgs(2),
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
			investor, err := a.wallets.Resolve(args[1])
			if err != nil {
				return err
			}
			if err := a.lp.AddUserForProject(ctx, caller, id, investor); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Whitelisted %s for project #%d", ui.Addr(investor.Hex()), id)))
			return nil
		})
	},
}

var projectWatchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Live view of a project",
	Long: `Poll a project and render its counters, custody balance and latest
events in a live TUI. The poll interval is watch_interval in config.

Keyboard controls:
  r   refresh now
  q   quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if _, err := a.lp.Project(id); err != nil {
				return err
			}
			m := ui.NewWatchModel(id, cfg.WatchEvery(), func() (ui.ProjectSnapshot, error) {
				return a.snapshot(ctx, id)
			})
			prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
			_, err := prog.Run()
			return err
		})
	},
}

// snapshot reloads the ledger and reads one project with its journal.
func (a *app) snapshot(ctx context.Context, id uint64) (ui.ProjectSnapshot, error) {
	if err := a.reload(ctx); err != nil {
		return ui.ProjectSnapshot{}, err
	}
	p, err := a.lp.Project(id)
	if err != nil {
		return ui.ProjectSnapshot{}, err
	}
	held, err := a.funds.BalanceOf(ctx, p.SaleAsset, a.custody)
	if err != nil {
		return ui.ProjectSnapshot{}, fmt.Errorf("custody balance: %w", err)
	}
	events, err := a.lp.Events(ctx, 0)
	if err != nil {
		return ui.ProjectSnapshot{}, err
	}
	return ui.ProjectSnapshot{Project: p, Custody: held, Events: eventsFor(events, id), At: time.Now()}, nil
}

func eventsFor(events []launchpad.Event, id uint64) []launchpad.Event {
	out := events[:0:0]
	for _, ev := range events {
		if ev.ProjectID == id {
			out = append(out, ev)
		}
	}
	return out
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a new project for sale",
	Long: `List a project. The caller becomes its owner.

Amounts are integers in base units. Custody must hold cap/price sale-asset
units before the first investment is accepted (see "launchpad fund").

--ends accepts unix seconds, RFC 3339, or a duration from now such as +72h.

Example:
  launchpad list --as owner --asset 0x5FbD... --price 10 --min 100 \
      --max 500 --cap 1000 --ends +72h --whitelist alice,bob`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asset, err := parseAddress(listAsset)
		if err != nil {
			return fmt.Errorf("--asset: %w", err)
		}
		in := launchpad.Listing{SaleAsset: asset}
		for _, f := range []struct {
			flag string
			val  string
			dst  **big.Int
		}{
			{"price", listPrice, &in.TokenPrice},
			{"min", listMin, &in.MinInvestment},
			{"max", listMax, &in.MaxInvestment},
			{"cap", listCap, &in.MaxCap},
		} {
			if *f.dst, err = parseAmount(f.val); err != nil {
				return fmt.Errorf("--%s: %w", f.flag, err)
			}
		}
		if in.EndTime, err = parseEndTime(listEnds, time.Now()); err != nil {
			return fmt.Errorf("--ends: %w", err)
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			if in.Whitelist, err = resolveList(a.wallets, listWhitelist); err != nil {
				return fmt.Errorf("--whitelist: %w", err)
			}
			id, err := a.lp.ListProject(ctx, caller, in)
			if err != nil {
				return err
			}
			p, err := a.lp.Project(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Success("Listed project #"+strconv.FormatUint(id, 10)))
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("Fund custody with %s units of %s before investors buy in.",
				p.RequiredFunding(), p.SaleAsset.Hex())))
			return nil
		})
	},
}

func init() {
	listCmd.Flags().StringVar(&listAsset, "asset", "", "sale asset token address (required)")
	listCmd.Flags().StringVar(&listPrice, "price", "", "payment units per sale-asset unit (required)")
	listCmd.Flags().StringVar(&listMin, "min", "", "minimum single investment (required)")
	listCmd.Flags().StringVar(&listMax, "max", "", "maximum single investment (required)")
	listCmd.Flags().StringVar(&listCap, "cap", "", "hard cap on total raised (required)")
	listCmd.Flags().StringVar(&listEnds, "ends", "", "sale end time (required)")
	listCmd.Flags().StringVar(&listWhitelist, "whitelist", "", "comma-separated investors (names or addresses)")
	for _, f := range []string{"asset", "price", "min", "max", "cap", "ends"} {
		listCmd.MarkFlagRequired(f) //nolint:errcheck
	}

	projectCmd.AddCommand(projectListCmd, projectShowCmd, projectAddInvestorCmd, projectWatchCmd)
}
