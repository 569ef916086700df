package launchpad

import (
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the stored lifecycle state of a project. "Ended" is not a
// status: it is derived from EndTime at call time.
type Status uint8

const (
	StatusActive Status = iota
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Listing holds the terms a project owner submits to ListProject.
type Listing struct {
	SaleAsset     common.Address
	TokenPrice    *big.Int // payment-medium units per sale-asset unit
	MinInvestment *big.Int
	MaxInvestment *big.Int
	MaxCap        *big.Int
	EndTime       uint64 // unix seconds; 0 means already ended
	Whitelist     []common.Address
}

// Position is one investor's standing in a project.
type Position struct {
	Invested  *big.Int
	Allocated *big.Int
	Claimed   *big.Int
}

// Project is a single fundraising campaign and its ledger counters.
type Project struct {
	ID            uint64
	Owner         common.Address
	SaleAsset     common.Address
	TokenPrice    *big.Int
	MinInvestment *big.Int
	MaxInvestment *big.Int
	MaxCap        *big.Int
	EndTime       uint64
	Status        Status
	CreatedAt     time.Time

	TotalRaised    *big.Int
	TotalAllocated *big.Int
	TotalClaimed   *big.Int
	Withdrawn      bool
	Swept          bool

	Whitelist map[common.Address]struct{}
	Positions map[common.Address]*Position
}

// Ended reports whether the sale window has closed at now.
func (p *Project) Ended(now time.Time) bool {
	if p.EndTime == 0 {
		return true
	}
	n := now.Unix()
	return n >= 0 && uint64(n) >= p.EndTime
}

// Active reports whether the project still accepts investments at now.
func (p *Project) Active(now time.Time) bool {
	return p.Status == StatusActive && !p.Ended(now)
}

// Settleable reports whether the owner may withdraw the raised funds.
func (p *Project) Settleable(now time.Time) bool {
	return p.Status == StatusCancelled || p.Ended(now)
}

// Whitelisted reports whether addr may invest.
func (p *Project) Whitelisted(addr common.Address) bool {
	_, ok := p.Whitelist[addr]
	return ok
}

// WhitelistSorted returns the whitelist in byte order.
func (p *Project) WhitelistSorted() []common.Address {
	out := make([]common.Address, 0, len(p.Whitelist))
	for a := range p.Whitelist {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Position returns the investor's position, zero-valued if absent.
func (p *Project) Position(investor common.Address) Position {
	if pos, ok := p.Positions[investor]; ok {
		return pos.copy()
	}
	return Position{Invested: new(big.Int), Allocated: new(big.Int), Claimed: new(big.Int)}
}

// Unsold is the sale asset this project's funding set aside that no
// investor was allocated.
func (p *Project) Unsold() *big.Int {
	u := new(big.Int).Sub(p.RequiredFunding(), p.TotalAllocated)
	if u.Sign() < 0 {
		u.SetInt64(0)
	}
	return u
}

// Outstanding is the allocated-but-unclaimed sale asset held for investors.
func (p *Project) Outstanding() *big.Int {
	return new(big.Int).Sub(p.TotalAllocated, p.TotalClaimed)
}

// RequiredFunding is the sale-asset amount custody must hold before the
// first investment: MaxCap converted to token units at TokenPrice.
func (p *Project) RequiredFunding() *big.Int {
	return new(big.Int).Quo(p.MaxCap, p.TokenPrice)
}

// Clone returns a deep copy.
func (p *Project) Clone() *Project {
	c := *p
	c.TokenPrice = cloneInt(p.TokenPrice)
	c.MinInvestment = cloneInt(p.MinInvestment)
	c.MaxInvestment = cloneInt(p.MaxInvestment)
	c.MaxCap = cloneInt(p.MaxCap)
	c.TotalRaised = cloneInt(p.TotalRaised)
	c.TotalAllocated = cloneInt(p.TotalAllocated)
	c.TotalClaimed = cloneInt(p.TotalClaimed)
	c.Whitelist = make(map[common.Address]struct{}, len(p.Whitelist))
	for a := range p.Whitelist {
		c.Whitelist[a] = struct{}{}
	}
	c.Positions = make(map[common.Address]*Position, len(p.Positions))
	for a, pos := range p.Positions {
		cp := pos.copy()
		c.Positions[a] = &cp
	}
	return &c
}

func (pos Position) copy() Position {
	return Position{
		Invested:  cloneInt(pos.Invested),
		Allocated: cloneInt(pos.Allocated),
		Claimed:   cloneInt(pos.Claimed),
	}
}

func (p *Project) position(investor common.Address) *Position {
	pos, ok := p.Positions[investor]
	if !ok {
		pos = &Position{Invested: new(big.Int), Allocated: new(big.Int), Claimed: new(big.Int)}
		p.Positions[investor] = pos
	}
	return pos
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
