package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/chain"
	"github.com/Mohsinsiddi/launchpad/internal/config"
	"github.com/Mohsinsiddi/launchpad/internal/contract"
	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/Mohsinsiddi/launchpad/internal/logging"
	"github.com/Mohsinsiddi/launchpad/internal/store"
	"github.com/Mohsinsiddi/launchpad/internal/token"
	"github.com/Mohsinsiddi/launchpad/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// funds is the bootstrap side of a balance backend: minting and reading
// balances outside the launchpad's own operations.
type funds interface {
	Mint(ctx context.Context, asset, to common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error)
}

// app is everything a command needs, built once per invocation.
type app struct {
	lp      *launchpad.Launchpad
	db      *store.Store
	wallets *wallet.Manager
	funds   funds
	custody common.Address

	params launchpad.Params
	opts   []launchpad.Option
}

// withApp opens the ledger, runs fn and closes the database.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close() //nolint:errcheck
	return fn(ctx, a)
}

func openApp(ctx context.Context) (*app, error) {
	wallets, err := newWalletManager(cfg.Mode == config.ModeEVM)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a := &app{db: db, wallets: wallets}

	switch cfg.Mode {
	case config.ModeEVM:
		err = a.wireEVM()
	default:
		err = a.wireLocal()
	}
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	if cfg.Admin != "" {
		if a.params.Admin, err = wallets.Resolve(cfg.Admin); err != nil {
			db.Close() //nolint:errcheck
			return nil, fmt.Errorf("admin: %w", err)
		}
	}
	a.params.Custody = a.custody
	a.opts = []launchpad.Option{launchpad.WithStore(db), launchpad.WithLogger(logging.L)}

	if err := a.reload(ctx); err != nil {
		db.Close() //nolint:errcheck
		if errors.Is(err, launchpad.ErrNoAdmin) {
			return nil, fmt.Errorf("ledger not initialised: run `launchpad init --admin <address>`")
		}
		return nil, err
	}
	logging.Debugf("opened %s ledger at %s (custody %s)", cfg.Mode, cfg.DBPath, a.custody.Hex())
	return a, nil
}

// reload rebuilds the launchpad from the database, picking up writes made
// by other processes.
func (a *app) reload(ctx context.Context) error {
	lp, err := launchpad.New(ctx, a.params, a.opts...)
	if err != nil {
		return err
	}
	a.lp = lp
	return nil
}

func (a *app) wireLocal() error {
	if cfg.Custody == "" {
		return fmt.Errorf("custody address not configured: run `launchpad init --custody <address>`")
	}
	custody, err := a.wallets.Resolve(cfg.Custody)
	if err != nil {
		return fmt.Errorf("custody: %w", err)
	}
	bal := a.db.Balances(custody)
	a.custody = custody
	a.funds = bal
	a.params.Assets = bal
	a.params.Payments = bal
	return nil
}

func (a *app) wireEVM() error {
	if cfg.CustodyWallet == "" {
		return fmt.Errorf("mode %q requires custody_wallet (a signing wallet)", cfg.Mode)
	}
	signer, err := a.wallets.Signer(cfg.CustodyWallet)
	if err != nil {
		return fmt.Errorf("custody wallet: %w", err)
	}
	client := chain.NewEVMClient(cfg.RPCURL)
	chainID := big.NewInt(cfg.ChainID)
	backend := token.NewChain(client, contract.NewSender(client, signer, chainID, cfg.ReceiptWait()))

	a.custody = signer.Address()
	a.funds = evmFunds{backend}
	a.params.Assets = backend
	a.params.Payments = backend

	// A signing investor pays its own deposit into custody.
	if w, err := a.wallets.Get(asFlag); err == nil && w.Type == wallet.TypeSigning && w.Address != a.custody {
		inv, err := a.wallets.Signer(w.Name)
		if err != nil {
			return err
		}
		a.params.Payments = backend.WithInvestor(a.custody, contract.NewSender(client, inv, chainID, cfg.ReceiptWait()))
	}
	return nil
}

// caller resolves --as.
func (a *app) caller() (common.Address, error) {
	if asFlag == "" {
		return common.Address{}, fmt.Errorf("--as is required (wallet name or address)")
	}
	return a.wallets.Resolve(asFlag)
}

// investor resolves --as for an investment. The payment backend must be
// able to take the amount from the investor; otherwise the ledger would book
// an allocation nobody paid for.
func (a *app) investor() (common.Address, error) {
	addr, err := a.caller()
	if err != nil {
		return common.Address{}, err
	}
	if _, ok := a.params.Payments.(launchpad.Collector); !ok {
		return common.Address{}, fmt.Errorf("%s cannot pay in %q mode: --as must name a signing wallet", addr.Hex(), cfg.Mode)
	}
	return addr, nil
}

// evmFunds adapts the chain backend: the native currency is read from the
// node, sale assets through their ERC-20 contracts.
type evmFunds struct{ c *token.Chain }

func (f evmFunds) Mint(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	if asset == token.Native {
		return fmt.Errorf("the native currency cannot be minted in %q mode", config.ModeEVM)
	}
	t, err := f.c.ERC20(asset)
	if err != nil {
		return err
	}
	return t.Mint(ctx, to, amount)
}

func (f evmFunds) BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	if asset == token.Native {
		return f.c.NativeBalance(ctx, holder)
	}
	t, err := f.c.ERC20(asset)
	if err != nil {
		return nil, err
	}
	return t.BalanceOf(ctx, holder)
}

// newWalletManager opens the wallet list. The keystore is only opened when
// keys are needed, so local mode works without a keychain.
func newWalletManager(withKeys bool) (*wallet.Manager, error) {
	opts := []wallet.Option{wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath()))}
	if withKeys {
		ks, err := wallet.OpenKeystore(cfg.KeysDir(), cfg.KeystorePassphrase)
		if err != nil {
			return nil, err
		}
		opts = append(opts, wallet.WithKeystore(ks))
	}
	return wallet.NewManager(opts...), nil
}

// --- argument parsing ---

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid project id %q", s)
	}
	return id, nil
}

// parseAmount reads a non-negative integer in base units.
func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// parseEndTime accepts unix seconds, RFC 3339, or "+<duration>" relative
// to now.
func parseEndTime(s string, now time.Time) (uint64, error) {
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		d, err := time.ParseDuration(rest)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid end time %q", s)
		}
		return uint64(now.Add(d).Unix()), nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.Unix() < 0 {
		return 0, fmt.Errorf("invalid end time %q (want unix seconds, RFC 3339 or +duration)", s)
	}
	return uint64(t.Unix()), nil
}

// resolveList resolves a comma-separated list of wallet names or addresses.
func resolveList(w *wallet.Manager, s string) ([]common.Address, error) {
	var out []common.Address
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := w.Resolve(part)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
