package launchpad

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TotalRaised returns the payment medium raised by project id.
func (l *Launchpad) TotalRaised(id uint64) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup("totalRaised", id)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(p.TotalRaised), nil
}

// InvestmentOf returns investor's cumulative contribution to project id.
func (l *Launchpad) InvestmentOf(id uint64, investor common.Address) (*big.Int, error) {
	pos, err := l.positionOf("investmentOf", id, investor)
	if err != nil {
		return nil, err
	}
	return pos.Invested, nil
}

// AllocationOf returns investor's cumulative sale-asset allocation.
func (l *Launchpad) AllocationOf(id uint64, investor common.Address) (*big.Int, error) {
	pos, err := l.positionOf("allocationOf", id, investor)
	if err != nil {
		return nil, err
	}
	return pos.Allocated, nil
}

// ClaimedOf returns how much of investor's allocation has been delivered.
func (l *Launchpad) ClaimedOf(id uint64, investor common.Address) (*big.Int, error) {
	pos, err := l.positionOf("claimedOf", id, investor)
	if err != nil {
		return nil, err
	}
	return pos.Claimed, nil
}

func (l *Launchpad) positionOf(op string, id uint64, investor common.Address) (Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup(op, id)
	if err != nil {
		return Position{}, err
	}
	return p.Position(investor), nil
}
