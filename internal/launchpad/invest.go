package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Invest admits amount of the payment medium from caller into project id and
// returns the sale-asset allocation granted for it.
//
// Checks run in a fixed order and the first failure wins: pause, project id,
// whitelist, custody funding, end time, status, per-call minimum, cumulative
// per-investor maximum, global cap. The allocation is amount / TokenPrice,
// truncated.
func (l *Launchpad) Invest(ctx context.Context, caller common.Address, id uint64, amount *big.Int) (*big.Int, error) {
	const op = "invest"
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Paused {
		return nil, reject(op, KindPaused)
	}
	cur, err := l.lookup(op, id)
	if err != nil {
		return nil, err
	}
	if !cur.Whitelisted(caller) {
		return nil, reject(op, KindNotWhiteListed, "caller", caller.Hex(), "projectId", id)
	}

	_, bal, err := l.custodyBalance(ctx, cur)
	if err != nil {
		return nil, err
	}
	if need := cur.RequiredFunding(); bal.Cmp(need) < 0 {
		return nil, reject(op, KindContractNotFullyFunded, "balance", bal, "required", need)
	}

	now := l.clock()
	if cur.Ended(now) {
		return nil, reject(op, KindProjectEnded, "endTime", cur.EndTime, "now", now.Unix())
	}
	if cur.Status != StatusActive {
		return nil, reject(op, KindProjectNotActive, "projectId", id, "status", cur.Status)
	}

	amt := cloneInt(amount)
	if amt.Cmp(cur.MinInvestment) < 0 {
		return nil, reject(op, KindInvestmentBelowMinimum, "amount", amt, "minInvestment", cur.MinInvestment)
	}
	invested := new(big.Int).Add(cur.Position(caller).Invested, amt)
	if invested.Cmp(cur.MaxInvestment) > 0 {
		return nil, reject(op, KindInvestmentExceedsMaximum, "amount", amt, "cumulative", invested, "maxInvestment", cur.MaxInvestment)
	}
	raised := new(big.Int).Add(cur.TotalRaised, amt)
	if raised.Cmp(cur.MaxCap) > 0 {
		return nil, reject(op, KindMaxCapExceeded, "amount", amt, "totalRaised", cur.TotalRaised, "maxCap", cur.MaxCap)
	}

	alloc := new(big.Int).Quo(amt, cur.TokenPrice)
	next := cur.Clone()
	pos := next.position(caller)
	pos.Invested.Set(invested)
	pos.Allocated.Add(pos.Allocated, alloc)
	next.TotalRaised.Set(raised)
	next.TotalAllocated.Add(next.TotalAllocated, alloc)

	var effect func(context.Context) error
	if c, ok := l.payments.(Collector); ok {
		effect = func(ctx context.Context) error {
			if err := c.Collect(ctx, caller, amt); err != nil {
				return fmt.Errorf("collecting payment from %s: %w", caller.Hex(), err)
			}
			return nil
		}
	}
	err = l.commit(ctx, l.state, next, Event{
		Action:  ActionInvest,
		Actor:   caller,
		Details: fmt.Sprintf("amount=%s allocation=%s", amt, alloc),
	}, effect)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(alloc), nil
}
