package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/launchpad/internal/chain"
	"github.com/Mohsinsiddi/launchpad/internal/contract"
	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20 is a sale asset deployed as an ERC-20 contract. Transfers are sent
// from the custody account the sender signs for.
type ERC20 struct {
	token  common.Address
	caller *contract.Caller
	sender *contract.Sender
}

// BalanceOf reads holder's token balance.
func (t *ERC20) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	out, err := t.caller.Call(ctx, t.token, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Transfer sends amount tokens from custody to to and waits for the
// receipt.
func (t *ERC20) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if _, err := t.sender.Invoke(ctx, contract.ERC20, t.token, "transfer", to, amount); err != nil {
		return fmt.Errorf("transfer %s of %s to %s: %w", amount, t.token.Hex(), to.Hex(), err)
	}
	return nil
}

// Mint calls the token's owner-only mint. The custody account must own the
// token contract.
func (t *ERC20) Mint(ctx context.Context, to common.Address, amount *big.Int) error {
	if _, err := t.sender.Invoke(ctx, contract.ERC20, t.token, "mint", to, amount); err != nil {
		return fmt.Errorf("mint %s of %s to %s: %w", amount, t.token.Hex(), to.Hex(), err)
	}
	return nil
}

// Symbol reads the token symbol.
func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	out, err := t.caller.Call(ctx, t.token, "symbol")
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// Decimals reads the token's decimal places.
func (t *ERC20) Decimals(ctx context.Context) (int, error) {
	out, err := t.caller.Call(ctx, t.token, "decimals")
	if err != nil {
		return 0, err
	}
	return int(out[0].(*big.Int).Int64()), nil
}

// Chain resolves sale assets to ERC-20 contracts and pays out the native
// currency, all from one custody account. It does not collect: investors
// send value with their own transactions.
type Chain struct {
	client *chain.EVMClient
	caller *contract.Caller
	sender *contract.Sender
}

// NewChain binds the chain backend to a node and the custody sender.
func NewChain(client *chain.EVMClient, sender *contract.Sender) *Chain {
	return &Chain{
		client: client,
		caller: contract.NewCaller(client, contract.ERC20),
		sender: sender,
	}
}

// Asset returns the ERC-20 adapter for token.
func (c *Chain) Asset(token common.Address) (launchpad.SaleAsset, error) {
	return c.ERC20(token)
}

// ERC20 returns the concrete adapter, exposing Mint and metadata.
func (c *Chain) ERC20(token common.Address) (*ERC20, error) {
	if token == (common.Address{}) {
		return nil, fmt.Errorf("token address is zero")
	}
	return &ERC20{token: token, caller: c.caller, sender: c.sender}, nil
}

// Pay sends amount wei from custody to to.
func (c *Chain) Pay(ctx context.Context, to common.Address, amount *big.Int) error {
	if _, err := c.sender.Transact(ctx, to, nil, amount); err != nil {
		return fmt.Errorf("paying %s wei to %s: %w", amount, to.Hex(), err)
	}
	return nil
}

// NativeBalance reads an account's native balance.
func (c *Chain) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.client.BalanceAt(ctx, addr)
}

// Deposits is a Chain that also collects: the investor signs a native
// transfer to custody as part of the investment.
type Deposits struct {
	*Chain
	custody  common.Address
	investor *contract.Sender
}

// WithInvestor returns a backend that collects from investor's account.
func (c *Chain) WithInvestor(custody common.Address, investor *contract.Sender) *Deposits {
	return &Deposits{Chain: c, custody: custody, investor: investor}
}

// Collect sends amount wei from the investor to custody. from must be the
// account the investor sender signs for.
func (d *Deposits) Collect(ctx context.Context, from common.Address, amount *big.Int) error {
	if from != d.investor.From() {
		return fmt.Errorf("no signer for %s (have %s)", from.Hex(), d.investor.From().Hex())
	}
	if _, err := d.investor.Transact(ctx, d.custody, nil, amount); err != nil {
		return fmt.Errorf("depositing %s wei to custody: %w", amount, err)
	}
	return nil
}
