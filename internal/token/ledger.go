// Package token provides sale-asset and payment backends for the
// launchpad: an in-memory multi-asset ledger and adapters that talk to an
// EVM node.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/ethereum/go-ethereum/common"
)

// Native is the key the native payment medium is booked under.
var Native = common.Address{}

// ErrInsufficientBalance is returned when a debit exceeds the balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger is an in-memory balance book for any number of assets. Transfers
// of sale assets and payouts originate from the custody identity.
type Ledger struct {
	mu       sync.Mutex
	custody  common.Address
	balances map[common.Address]map[common.Address]*big.Int
}

// NewLedger creates an empty ledger whose outgoing transfers debit custody.
func NewLedger(custody common.Address) *Ledger {
	return &Ledger{
		custody:  custody,
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits amount of asset to holder.
func (l *Ledger) Mint(asset, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.slot(asset, holder)
	bal.Add(bal, amount)
	return nil
}

// BalanceOf returns holder's balance of asset.
func (l *Ledger) BalanceOf(asset, holder common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.slot(asset, holder))
}

// Move transfers amount of asset between two holders.
func (l *Ledger) Move(asset, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.slot(asset, from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s of %s, need %s", ErrInsufficientBalance, from.Hex(), src, asset.Hex(), amount)
	}
	src.Sub(src, amount)
	dst := l.slot(asset, to)
	dst.Add(dst, amount)
	return nil
}

func (l *Ledger) slot(asset, holder common.Address) *big.Int {
	m, ok := l.balances[asset]
	if !ok {
		m = make(map[common.Address]*big.Int)
		l.balances[asset] = m
	}
	v, ok := m[holder]
	if !ok {
		v = new(big.Int)
		m[holder] = v
	}
	return v
}

// Asset returns the sale-asset adapter for token.
func (l *Ledger) Asset(token common.Address) (launchpad.SaleAsset, error) {
	if token == Native {
		return nil, fmt.Errorf("the native medium is not a sale asset")
	}
	return &ledgerAsset{ledger: l, token: token}, nil
}

// Pay sends native units from custody to to.
func (l *Ledger) Pay(_ context.Context, to common.Address, amount *big.Int) error {
	return l.Move(Native, l.custody, to, amount)
}

// Collect debits native units from an investor into custody.
func (l *Ledger) Collect(_ context.Context, from common.Address, amount *big.Int) error {
	return l.Move(Native, from, l.custody, amount)
}

type ledgerAsset struct {
	ledger *Ledger
	token  common.Address
}

func (a *ledgerAsset) BalanceOf(_ context.Context, holder common.Address) (*big.Int, error) {
	return a.ledger.BalanceOf(a.token, holder), nil
}

func (a *ledgerAsset) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	return a.ledger.Move(a.token, a.ledger.custody, to, amount)
}
