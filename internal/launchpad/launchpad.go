// Package launchpad implements a multi-project fundraising ledger: project
// listing and whitelisting, capped investment admission, and settlement.
//
// Every mutating operation is serialized on the Launchpad and either applies
// all of its changes or none. Callers are passed explicitly; nothing is read
// from ambient context.
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// SaleAsset is the fungible token a project sells. Transfers move tokens
// out of the launchpad's custody.
type SaleAsset interface {
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

// AssetResolver maps a token address to its adapter.
type AssetResolver interface {
	Asset(token common.Address) (SaleAsset, error)
}

// Payments pays out the native payment medium from custody.
type Payments interface {
	Pay(ctx context.Context, to common.Address, amount *big.Int) error
}

// Collector is implemented by payment backends that debit the investor
// when an investment is admitted. Backends where value arrives with the
// investor's own transaction do not implement it.
type Collector interface {
	Collect(ctx context.Context, from common.Address, amount *big.Int) error
}

// State is the platform-wide part of the ledger.
type State struct {
	Admin  common.Address
	Paused bool
	NextID uint64
}

// Event is one committed mutation, as recorded in the journal.
type Event struct {
	Seq       uint64
	Action    string
	ProjectID uint64
	Actor     common.Address
	Details   string
	At        time.Time
}

// Checkpoint is everything a single mutation persists.
type Checkpoint struct {
	State   State
	Project *Project // nil when only platform state changed
	Event   Event
}

// Store persists checkpoints. Commit must write the checkpoint and run
// effect inside one transaction, committing only if effect succeeds.
type Store interface {
	Load(ctx context.Context) (*State, []*Project, error)
	Commit(ctx context.Context, cp Checkpoint, effect func(context.Context) error) error
	Events(ctx context.Context, limit int) ([]Event, error)
}

// Event actions.
const (
	ActionInit        = "INIT"
	ActionChangeAdmin = "CHANGE_ADMIN"
	ActionPause       = "PAUSE"
	ActionUnpause     = "UNPAUSE"
	ActionList        = "LIST_PROJECT"
	ActionAddInvestor = "ADD_INVESTOR"
	ActionInvest      = "INVEST"
	ActionCancel      = "CANCEL_PROJECT"
	ActionWithdraw    = "WITHDRAW_RAISED"
	ActionSweep       = "SWEEP"
	ActionClaim       = "CLAIM_ALLOCATION"
)

// ErrNoAdmin is returned by New when neither the store nor the params
// provide an admin identity.
var ErrNoAdmin = errors.New("launchpad: admin identity required")

// Params are the collaborators every Launchpad needs.
type Params struct {
	Admin    common.Address // used only when the store holds no state yet
	Custody  common.Address // identity holding sale assets and raised funds
	Assets   AssetResolver
	Payments Payments
}

// Launchpad is the ledger engine.
type Launchpad struct {
	mu       sync.RWMutex
	state    State
	projects []*Project // arena: id n lives at index n-1

	custody  common.Address
	assets   AssetResolver
	payments Payments
	store    Store
	clock    func() time.Time
	log      *log.Logger
}

// Option configures a Launchpad.
type Option func(*Launchpad)

// WithClock injects the time source used for end-time checks.
func WithClock(now func() time.Time) Option {
	return func(l *Launchpad) { l.clock = now }
}

// WithStore persists every mutation through s.
func WithStore(s Store) Option {
	return func(l *Launchpad) { l.store = s }
}

// WithLogger sets the logger committed events are written to.
func WithLogger(lg *log.Logger) Option {
	return func(l *Launchpad) { l.log = lg }
}

// New builds a Launchpad, restoring state from the store when one is
// configured and already holds a checkpoint.
func New(ctx context.Context, p Params, opts ...Option) (*Launchpad, error) {
	if p.Assets == nil {
		return nil, fmt.Errorf("launchpad: asset resolver required")
	}
	if p.Payments == nil {
		return nil, fmt.Errorf("launchpad: payments backend required")
	}
	l := &Launchpad{
		custody:  p.Custody,
		assets:   p.Assets,
		payments: p.Payments,
		clock:    time.Now,
		log:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.store != nil {
		st, projects, err := l.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading ledger: %w", err)
		}
		if st != nil {
			l.state = *st
			l.projects = projects
			l.log.Debug("restored ledger", "projects", len(projects), "admin", st.Admin.Hex(), "paused", st.Paused)
			return l, nil
		}
	}

	if p.Admin == (common.Address{}) {
		return nil, ErrNoAdmin
	}
	st := State{Admin: p.Admin, NextID: 1}
	ev := Event{Action: ActionInit, Actor: p.Admin, Details: "custody=" + p.Custody.Hex()}
	if err := l.commit(ctx, st, nil, ev, nil); err != nil {
		return nil, err
	}
	return l, nil
}

// CustodyAddress is the identity that holds sale assets and raised funds.
func (l *Launchpad) CustodyAddress() common.Address { return l.custody }

// Events returns up to limit journal entries, newest first. Without a
// store there is no journal and the result is empty.
func (l *Launchpad) Events(ctx context.Context, limit int) ([]Event, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.Events(ctx, limit)
}

// commit persists the checkpoint, runs the side effect, and only then
// publishes the new state in memory. Callers hold l.mu.
func (l *Launchpad) commit(ctx context.Context, st State, p *Project, ev Event, effect func(context.Context) error) error {
	if effect == nil {
		effect = func(context.Context) error { return nil }
	}
	if ev.At.IsZero() {
		ev.At = l.clock().UTC()
	}
	if p != nil {
		ev.ProjectID = p.ID
	}

	if l.store != nil {
		if err := l.store.Commit(ctx, Checkpoint{State: st, Project: p, Event: ev}, effect); err != nil {
			return err
		}
	} else if err := effect(ctx); err != nil {
		return err
	}

	l.state = st
	if p != nil {
		if int(p.ID) > len(l.projects) {
			l.projects = append(l.projects, p)
		} else {
			l.projects[p.ID-1] = p
		}
	}
	l.log.Info(ev.Action, "project", ev.ProjectID, "actor", ev.Actor.Hex(), "details", ev.Details)
	return nil
}

// lookup returns the stored project for id. Callers hold l.mu.
func (l *Launchpad) lookup(op string, id uint64) (*Project, error) {
	if id == 0 || id > uint64(len(l.projects)) {
		return nil, reject(op, KindInvalidProjectID, "projectId", id)
	}
	return l.projects[id-1], nil
}

// custodyBalance reads the custody balance of a project's sale asset.
func (l *Launchpad) custodyBalance(ctx context.Context, p *Project) (SaleAsset, *big.Int, error) {
	asset, err := l.assets.Asset(p.SaleAsset)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving sale asset %s: %w", p.SaleAsset.Hex(), err)
	}
	bal, err := asset.BalanceOf(ctx, l.custody)
	if err != nil {
		return nil, nil, fmt.Errorf("reading custody balance of %s: %w", p.SaleAsset.Hex(), err)
	}
	return asset, bal, nil
}
