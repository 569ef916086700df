package launchpad

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000d4")
	carol     = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	custody   = common.HexToAddress("0x00000000000000000000000000000000000000f6")
	saleToken = common.HexToAddress("0x0000000000000000000000000000000000005a1e")
	otherSale = common.HexToAddress("0x0000000000000000000000000000000000005a1f")
)

var errBankDown = errors.New("bank unavailable")

// ---------------------------------------------------------------------------
// clock
// ---------------------------------------------------------------------------

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *testClock) unix(offset time.Duration) uint64 {
	return uint64(c.Now().Add(offset).Unix())
}

// ---------------------------------------------------------------------------
// bank: sale assets and the native payment medium in one map
// ---------------------------------------------------------------------------

var nativeAsset = common.Address{}

type bank struct {
	mu       sync.Mutex
	custody  common.Address
	balances map[common.Address]map[common.Address]*big.Int

	failTransfer error
	failPay      error
	failCollect  error
	transfers    int
}

func newBank(custody common.Address) *bank {
	return &bank{custody: custody, balances: make(map[common.Address]map[common.Address]*big.Int)}
}

func (b *bank) mint(asset, holder common.Address, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slot(asset, holder).Add(b.slot(asset, holder), big.NewInt(amount))
}

func (b *bank) balance(asset, holder common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.slot(asset, holder))
}

func (b *bank) slot(asset, holder common.Address) *big.Int {
	m, ok := b.balances[asset]
	if !ok {
		m = make(map[common.Address]*big.Int)
		b.balances[asset] = m
	}
	v, ok := m[holder]
	if !ok {
		v = new(big.Int)
		m[holder] = v
	}
	return v
}

func (b *bank) move(asset, from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	src := b.slot(asset, from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: have %s, need %s", src, amount)
	}
	src.Sub(src, amount)
	dst := b.slot(asset, to)
	dst.Add(dst, amount)
	b.transfers++
	return nil
}

func (b *bank) Asset(token common.Address) (SaleAsset, error) {
	return &bankAsset{bank: b, token: token}, nil
}

func (b *bank) Pay(_ context.Context, to common.Address, amount *big.Int) error {
	if b.failPay != nil {
		return b.failPay
	}
	return b.move(nativeAsset, b.custody, to, amount)
}

func (b *bank) Collect(_ context.Context, from common.Address, amount *big.Int) error {
	if b.failCollect != nil {
		return b.failCollect
	}
	return b.move(nativeAsset, from, b.custody, amount)
}

type bankAsset struct {
	bank  *bank
	token common.Address
}

func (a *bankAsset) BalanceOf(_ context.Context, holder common.Address) (*big.Int, error) {
	return a.bank.balance(a.token, holder), nil
}

func (a *bankAsset) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	if a.bank.failTransfer != nil {
		return a.bank.failTransfer
	}
	return a.bank.move(a.token, a.bank.custody, to, amount)
}

// payOnly is a payment backend that cannot collect.
type payOnly struct{ b *bank }

func (p payOnly) Pay(ctx context.Context, to common.Address, amount *big.Int) error {
	return p.b.Pay(ctx, to, amount)
}

// ---------------------------------------------------------------------------
// memStore: an in-memory Store
// ---------------------------------------------------------------------------

type memStore struct {
	mu         sync.Mutex
	state      *State
	projects   map[uint64]*Project
	events     []Event
	failCommit error
}

func newMemStore() *memStore {
	return &memStore{projects: make(map[uint64]*Project)}
}

func (m *memStore) Load(context.Context) (*State, []*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil, nil
	}
	st := *m.state
	out := make([]*Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &st, out, nil
}

func (m *memStore) Commit(ctx context.Context, cp Checkpoint, effect func(context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCommit != nil {
		return m.failCommit
	}
	if err := effect(ctx); err != nil {
		return err
	}
	st := cp.State
	m.state = &st
	if cp.Project != nil {
		m.projects[cp.Project.ID] = cp.Project.Clone()
	}
	ev := cp.Event
	ev.Seq = uint64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) Events(_ context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.events))
	for i := len(m.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.events[i])
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// fixtures
// ---------------------------------------------------------------------------

type fixture struct {
	lp    *Launchpad
	bank  *bank
	clock *testClock
	store *memStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{bank: newBank(custody), clock: newTestClock(), store: newMemStore()}
	lp, err := New(context.Background(), Params{
		Admin:    admin,
		Custody:  custody,
		Assets:   f.bank,
		Payments: f.bank,
	}, WithClock(f.clock.Now), WithStore(f.store))
	require.NoError(t, err)
	f.lp = lp
	for _, who := range []common.Address{alice, bob, carol} {
		f.bank.mint(nativeAsset, who, 1_000)
	}
	return f
}

// listing is price 2, min 10, max 100, cap 300, open for one hour, with
// alice and bob whitelisted. Full funding is 300/2 = 150 sale tokens.
func (f *fixture) listing() Listing {
	return Listing{
		SaleAsset:     saleToken,
		TokenPrice:    big.NewInt(2),
		MinInvestment: big.NewInt(10),
		MaxInvestment: big.NewInt(100),
		MaxCap:        big.NewInt(300),
		EndTime:       f.clock.unix(time.Hour),
		Whitelist:     []common.Address{alice, bob},
	}
}

// listFunded lists the default project and funds custody for it.
func (f *fixture) listFunded(t *testing.T) uint64 {
	t.Helper()
	id, err := f.lp.ListProject(context.Background(), owner, f.listing())
	require.NoError(t, err)
	f.bank.mint(saleToken, custody, 150)
	return id
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	var le *Error
	require.True(t, errors.As(err, &le), "expected *launchpad.Error, got %T: %v", err, err)
	require.Equal(t, kind, le.Kind, "error: %v", err)
}
