package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CancelProject terminates project id and returns the whole custody balance
// of its sale asset to the project owner. Investors' allocations are not
// honoured after cancellation.
func (l *Launchpad) CancelProject(ctx context.Context, caller common.Address, id uint64) error {
	const op = "cancelProject"
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Admin {
		return reject(op, KindNotAdmin, "caller", caller.Hex())
	}
	cur, err := l.lookup(op, id)
	if err != nil {
		return err
	}
	if cur.Status == StatusCancelled {
		return reject(op, KindProjectNotActive, "projectId", id, "status", cur.Status)
	}

	asset, bal, err := l.custodyBalance(ctx, cur)
	if err != nil {
		return err
	}

	next := cur.Clone()
	next.Status = StatusCancelled
	return l.commit(ctx, l.state, next, Event{
		Action:  ActionCancel,
		Actor:   caller,
		Details: fmt.Sprintf("returned=%s owner=%s", bal, cur.Owner.Hex()),
	}, transferOut(asset, cur.Owner, bal))
}

// WithdrawAmountRaised pays the project's raised funds to its owner once the
// project has ended or been cancelled. It pays at most once.
func (l *Launchpad) WithdrawAmountRaised(ctx context.Context, caller common.Address, id uint64) (*big.Int, error) {
	const op = "withdrawAmountRaised"
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.lookup(op, id)
	if err != nil {
		return nil, err
	}
	if caller != cur.Owner {
		return nil, reject(op, KindNotProjectOwner, "caller", caller.Hex(), "projectId", id)
	}
	now := l.clock()
	if !cur.Settleable(now) {
		return nil, reject(op, KindProjectStillInProgress, "projectId", id, "endTime", cur.EndTime, "now", now.Unix())
	}
	if cur.Withdrawn {
		return nil, reject(op, KindAlreadyWithdrawn, "projectId", id)
	}

	amount := new(big.Int).Set(cur.TotalRaised)
	next := cur.Clone()
	next.Withdrawn = true

	var effect func(context.Context) error
	if amount.Sign() > 0 {
		effect = func(ctx context.Context) error {
			if err := l.payments.Pay(ctx, cur.Owner, amount); err != nil {
				return fmt.Errorf("paying %s to %s: %w", amount, cur.Owner.Hex(), err)
			}
			return nil
		}
	}
	err = l.commit(ctx, l.state, next, Event{
		Action:  ActionWithdraw,
		Actor:   caller,
		Details: "amount=" + amount.String(),
	}, effect)
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// Sweep sends the unsold sale-asset remainder of an ended project to to,
// once. The payout is the custody balance less what is still owed to
// investors, capped at the funding this project set aside and never sold.
// A cancelled project has nothing to sweep: cancellation already returned
// its balance.
func (l *Launchpad) Sweep(ctx context.Context, caller common.Address, id uint64, to common.Address) (*big.Int, error) {
	const op = "sweep"
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.lookup(op, id)
	if err != nil {
		return nil, err
	}
	if caller != cur.Owner {
		return nil, reject(op, KindNotProjectOwner, "caller", caller.Hex(), "projectId", id)
	}
	if to == (common.Address{}) {
		return nil, reject(op, KindAddressZero, "to", to.Hex())
	}
	if cur.Status == StatusCancelled {
		return nil, reject(op, KindProjectNotActive, "projectId", id, "status", cur.Status)
	}
	now := l.clock()
	if !cur.Ended(now) {
		return nil, reject(op, KindProjectStillInProgress, "projectId", id, "endTime", cur.EndTime, "now", now.Unix())
	}
	if cur.Swept {
		return nil, reject(op, KindAlreadySwept, "projectId", id)
	}

	asset, bal, err := l.custodyBalance(ctx, cur)
	if err != nil {
		return nil, err
	}
	remainder := new(big.Int).Sub(bal, cur.Outstanding())
	if unsold := cur.Unsold(); remainder.Cmp(unsold) > 0 {
		remainder = unsold
	}
	if remainder.Sign() < 0 {
		remainder.SetInt64(0)
	}

	next := cur.Clone()
	next.Swept = true
	err = l.commit(ctx, l.state, next, Event{
		Action:  ActionSweep,
		Actor:   caller,
		Details: fmt.Sprintf("amount=%s to=%s", remainder, to.Hex()),
	}, transferOut(asset, to, remainder))
	if err != nil {
		return nil, err
	}
	return remainder, nil
}

// ClaimAllocation delivers caller's unclaimed sale-asset allocation once the
// project has ended. Cancelled projects have nothing left to deliver.
func (l *Launchpad) ClaimAllocation(ctx context.Context, caller common.Address, id uint64) (*big.Int, error) {
	const op = "claimAllocation"
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Paused {
		return nil, reject(op, KindPaused)
	}
	cur, err := l.lookup(op, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == StatusCancelled {
		return nil, reject(op, KindProjectNotActive, "projectId", id, "status", cur.Status)
	}
	now := l.clock()
	if !cur.Ended(now) {
		return nil, reject(op, KindProjectStillInProgress, "projectId", id, "endTime", cur.EndTime, "now", now.Unix())
	}
	pos := cur.Position(caller)
	owed := new(big.Int).Sub(pos.Allocated, pos.Claimed)
	if owed.Sign() <= 0 {
		return nil, reject(op, KindNothingToClaim, "investor", caller.Hex(), "projectId", id)
	}

	asset, err := l.assets.Asset(cur.SaleAsset)
	if err != nil {
		return nil, fmt.Errorf("resolving sale asset %s: %w", cur.SaleAsset.Hex(), err)
	}
	next := cur.Clone()
	np := next.position(caller)
	np.Claimed.Add(np.Claimed, owed)
	next.TotalClaimed.Add(next.TotalClaimed, owed)

	err = l.commit(ctx, l.state, next, Event{
		Action:  ActionClaim,
		Actor:   caller,
		Details: "amount=" + owed.String(),
	}, transferOut(asset, caller, owed))
	if err != nil {
		return nil, err
	}
	return owed, nil
}

// transferOut returns a side effect moving amount of asset from custody to
// to. A zero amount is a no-op.
func transferOut(asset SaleAsset, to common.Address, amount *big.Int) func(context.Context) error {
	if amount.Sign() <= 0 {
		return nil
	}
	return func(ctx context.Context) error {
		if err := asset.Transfer(ctx, to, amount); err != nil {
			return fmt.Errorf("transferring %s sale asset to %s: %w", amount, to.Hex(), err)
		}
		return nil
	}
}
