package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// Native is the asset key the native payment medium is booked under.
var Native = common.Address{}

// ErrInsufficientBalance is returned when a debit exceeds the balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// BalanceModel maps the `balances` table used in local mode.
type BalanceModel struct {
	bun.BaseModel `bun:"table:balances"`
	Asset         string `bun:"asset,pk"`
	Holder        string `bun:"holder,pk"`
	Amount        string `bun:"amount,notnull"`
}

// Balances is a persisted multi-asset ledger. It backs sale assets and the
// payment medium when the launchpad runs without a chain. Moves made from
// inside a Commit effect join the checkpoint transaction.
type Balances struct {
	store   *Store
	custody common.Address
}

// Balances returns the ledger whose outgoing transfers debit custody.
func (s *Store) Balances(custody common.Address) *Balances {
	return &Balances{store: s, custody: custody}
}

// Mint credits amount of asset to holder.
func (b *Balances) Mint(ctx context.Context, asset, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive")
	}
	return b.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		bal, err := readBalance(ctx, db, asset, holder)
		if err != nil {
			return err
		}
		return writeBalance(ctx, db, asset, holder, bal.Add(bal, amount))
	})
}

// BalanceOf returns holder's balance of asset.
func (b *Balances) BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	return readBalance(ctx, b.store.conn(ctx), asset, holder)
}

// Move transfers amount of asset between two holders.
func (b *Balances) Move(ctx context.Context, asset, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	return b.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		src, err := readBalance(ctx, db, asset, from)
		if err != nil {
			return err
		}
		if src.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s holds %s of %s, need %s", ErrInsufficientBalance, from.Hex(), src, asset.Hex(), amount)
		}
		if err := writeBalance(ctx, db, asset, from, src.Sub(src, amount)); err != nil {
			return err
		}
		dst, err := readBalance(ctx, db, asset, to)
		if err != nil {
			return err
		}
		return writeBalance(ctx, db, asset, to, dst.Add(dst, amount))
	})
}

// Asset returns the sale-asset adapter for token.
func (b *Balances) Asset(token common.Address) (launchpad.SaleAsset, error) {
	if token == Native {
		return nil, fmt.Errorf("the native medium is not a sale asset")
	}
	return &balanceAsset{balances: b, token: token}, nil
}

// Pay sends native units from custody to to.
func (b *Balances) Pay(ctx context.Context, to common.Address, amount *big.Int) error {
	return b.Move(ctx, Native, b.custody, to, amount)
}

// Collect debits native units from an investor into custody.
func (b *Balances) Collect(ctx context.Context, from common.Address, amount *big.Int) error {
	return b.Move(ctx, Native, from, b.custody, amount)
}

// inTx runs fn on the transaction carried by ctx, or in a new one.
func (b *Balances) inTx(ctx context.Context, fn func(context.Context, bun.IDB) error) error {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return fn(ctx, tx)
	}
	return b.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

func readBalance(ctx context.Context, db bun.IDB, asset, holder common.Address) (*big.Int, error) {
	var m BalanceModel
	err := db.NewSelect().Model(&m).
		Where("asset = ?", asset.Hex()).
		Where("holder = ?", holder.Hex()).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	return parseAmount(m.Amount)
}

func writeBalance(ctx context.Context, db bun.IDB, asset, holder common.Address, amount *big.Int) error {
	m := BalanceModel{Asset: asset.Hex(), Holder: holder.Hex(), Amount: amount.String()}
	_, err := db.NewInsert().Model(&m).
		On("CONFLICT (asset, holder) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("writing balance: %w", err)
	}
	return nil
}

type balanceAsset struct {
	balances *Balances
	token    common.Address
}

func (a *balanceAsset) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	return a.balances.BalanceOf(ctx, a.token, holder)
}

func (a *balanceAsset) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	return a.balances.Move(ctx, a.token, a.balances.custody, to, amount)
}
