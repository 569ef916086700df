package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ListProject validates the listing and registers a new Active project owned
// by caller. It returns the new project id.
func (l *Launchpad) ListProject(ctx context.Context, caller common.Address, in Listing) (uint64, error) {
	const op = "listProject"
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Paused {
		return 0, reject(op, KindPaused)
	}
	price, minInv, maxInv, maxCap := cloneInt(in.TokenPrice), cloneInt(in.MinInvestment), cloneInt(in.MaxInvestment), cloneInt(in.MaxCap)
	switch {
	case in.SaleAsset == (common.Address{}):
		return 0, reject(op, KindAddressZero, "saleAsset", in.SaleAsset.Hex())
	case price.Sign() <= 0:
		return 0, reject(op, KindTokenPriceZero, "tokenPrice", price)
	case minInv.Sign() <= 0:
		return 0, reject(op, KindMinInvestmentZero, "minInvestment", minInv)
	case maxInv.Cmp(minInv) < 0:
		return 0, reject(op, KindMaxBelowMinInvestment, "minInvestment", minInv, "maxInvestment", maxInv)
	case maxCap.Cmp(maxInv) < 0:
		return 0, reject(op, KindMaxCapBelowMaxInvestment, "maxInvestment", maxInv, "maxCap", maxCap)
	case len(in.Whitelist) == 0:
		return 0, reject(op, KindEmptyAddress, "whitelist", "[]")
	}
	whitelist := make(map[common.Address]struct{}, len(in.Whitelist))
	for i, a := range in.Whitelist {
		if a == (common.Address{}) {
			return 0, reject(op, KindAddressZero, "whitelist", fmt.Sprintf("index %d", i))
		}
		whitelist[a] = struct{}{}
	}
	for _, p := range l.projects {
		if p.SaleAsset == in.SaleAsset && p.Status == StatusActive {
			return 0, reject(op, KindTokenAlreadyWhitelisted, "saleAsset", in.SaleAsset.Hex(), "projectId", p.ID)
		}
	}

	st := l.state
	p := &Project{
		ID:             st.NextID,
		Owner:          caller,
		SaleAsset:      in.SaleAsset,
		TokenPrice:     price,
		MinInvestment:  minInv,
		MaxInvestment:  maxInv,
		MaxCap:         maxCap,
		EndTime:        in.EndTime,
		Status:         StatusActive,
		CreatedAt:      l.clock().UTC(),
		TotalRaised:    new(big.Int),
		TotalAllocated: new(big.Int),
		TotalClaimed:   new(big.Int),
		Whitelist:      whitelist,
		Positions:      make(map[common.Address]*Position),
	}
	st.NextID++

	err := l.commit(ctx, st, p, Event{
		Action:  ActionList,
		Actor:   caller,
		Details: fmt.Sprintf("sale_asset=%s price=%s max_cap=%s end=%d", in.SaleAsset.Hex(), price, maxCap, in.EndTime),
	}, nil)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// AddUserForProject whitelists investor on a project owned by caller.
func (l *Launchpad) AddUserForProject(ctx context.Context, caller common.Address, id uint64, investor common.Address) error {
	const op = "addUserForProject"
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.lookup(op, id)
	if err != nil {
		return err
	}
	if caller != cur.Owner {
		return reject(op, KindNotProjectOwner, "caller", caller.Hex(), "projectId", id)
	}
	if l.state.Paused {
		return reject(op, KindPaused)
	}
	if investor == (common.Address{}) {
		return reject(op, KindAddressZero, "investor", investor.Hex())
	}
	if cur.Whitelisted(investor) {
		return reject(op, KindUserAlreadyWhitelisted, "investor", investor.Hex(), "projectId", id)
	}

	next := cur.Clone()
	next.Whitelist[investor] = struct{}{}
	return l.commit(ctx, l.state, next, Event{
		Action:  ActionAddInvestor,
		Actor:   caller,
		Details: "investor=" + investor.Hex(),
	}, nil)
}

// Project returns a copy of project id.
func (l *Launchpad) Project(id uint64) (*Project, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup("project", id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Projects returns copies of every project in id order.
func (l *Launchpad) Projects() []*Project {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Project, len(l.projects))
	for i, p := range l.projects {
		out[i] = p.Clone()
	}
	return out
}

// ProjectCount returns the number of listed projects.
func (l *Launchpad) ProjectCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.projects)
}

// IsWhitelisted reports whether investor may invest in project id.
func (l *Launchpad) IsWhitelisted(id uint64, investor common.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.lookup("isWhitelisted", id)
	if err != nil {
		return false, err
	}
	return p.Whitelisted(investor), nil
}
