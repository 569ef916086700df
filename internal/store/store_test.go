package store

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	bob     = common.HexToAddress("0x00000000000000000000000000000000000000d4")
	custody = common.HexToAddress("0x00000000000000000000000000000000000000f6")
	sale    = common.HexToAddress("0x0000000000000000000000000000000000005a1e")
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func openStore(t *testing.T, dsn string) *Store {
	t.Helper()
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type harness struct {
	store *Store
	bal   *Balances
	lp    *launchpad.Launchpad
	now   time.Time
}

func newHarness(t *testing.T, s *Store) *harness {
	t.Helper()
	h := &harness{store: s, bal: s.Balances(custody), now: time.Unix(1_700_000_000, 0)}
	lp, err := launchpad.New(context.Background(),
		launchpad.Params{Admin: admin, Custody: custody, Assets: h.bal, Payments: h.bal},
		launchpad.WithStore(s),
		launchpad.WithClock(func() time.Time { return h.now }),
	)
	require.NoError(t, err)
	h.lp = lp
	return h
}

func (h *harness) listing() launchpad.Listing {
	return launchpad.Listing{
		SaleAsset:     sale,
		TokenPrice:    big.NewInt(2),
		MinInvestment: big.NewInt(10),
		MaxInvestment: big.NewInt(100),
		MaxCap:        big.NewInt(300),
		EndTime:       uint64(h.now.Add(time.Hour).Unix()),
		Whitelist:     []common.Address{alice, bob},
	}
}

func (h *harness) balance(t *testing.T, asset, holder common.Address) int64 {
	t.Helper()
	b, err := h.bal.BalanceOf(context.Background(), asset, holder)
	require.NoError(t, err)
	return b.Int64()
}

// ---------------------------------------------------------------------------
// Load / Commit
// ---------------------------------------------------------------------------

func TestLoadEmptyDatabase(t *testing.T) {
	s := openStore(t, ":memory:")
	st, projects, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Empty(t, projects)
}

func TestLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "launchpad.db")

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	h := newHarness(t, s)
	require.NoError(t, h.bal.Mint(ctx, Native, alice, big.NewInt(500)))
	id, err := h.lp.ListProject(ctx, owner, h.listing())
	require.NoError(t, err)
	require.NoError(t, h.bal.Mint(ctx, sale, custody, big.NewInt(150)))
	_, err = h.lp.Invest(ctx, alice, id, big.NewInt(61))
	require.NoError(t, err)
	require.NoError(t, h.lp.AddUserForProject(ctx, owner, id, common.HexToAddress("0xe5")))
	require.NoError(t, h.lp.Pause(ctx, admin))
	require.NoError(t, s.Close())

	reopened := openStore(t, dsn)
	h2 := newHarness(t, reopened)
	assert.True(t, h2.lp.Paused())
	assert.Equal(t, admin, h2.lp.Admin())
	require.Equal(t, 1, h2.lp.ProjectCount())

	p, err := h2.lp.Project(id)
	require.NoError(t, err)
	assert.Equal(t, owner, p.Owner)
	assert.Equal(t, sale, p.SaleAsset)
	assert.Equal(t, int64(61), p.TotalRaised.Int64())
	assert.Equal(t, int64(30), p.TotalAllocated.Int64())
	assert.Equal(t, h.listing().EndTime, p.EndTime)
	assert.Len(t, p.Whitelist, 3)
	assert.True(t, p.CreatedAt.Equal(h.now))

	alloc, err := h2.lp.AllocationOf(id, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(30), alloc.Int64())
	assert.Equal(t, int64(439), h2.balance(t, Native, alice))
	assert.Equal(t, int64(61), h2.balance(t, Native, custody))

	// Ids keep counting from the restored state.
	require.NoError(t, h2.lp.Unpause(ctx, admin))
	require.NoError(t, h2.lp.CancelProject(ctx, admin, id))
	next, err := h2.lp.ListProject(ctx, owner, h2.listing())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}

func TestCommitRollsBackOnEffectFailure(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, ":memory:")
	h := newHarness(t, s)
	require.NoError(t, h.bal.Mint(ctx, Native, alice, big.NewInt(500)))
	id, err := h.lp.ListProject(ctx, owner, h.listing())
	require.NoError(t, err)
	require.NoError(t, h.bal.Mint(ctx, sale, custody, big.NewInt(150)))

	boom := errors.New("boom")
	err = s.Commit(ctx, launchpad.Checkpoint{
		State: launchpad.State{Admin: bob, NextID: 9},
		Event: launchpad.Event{Action: "TEST", Actor: bob, At: h.now},
	}, func(ctx context.Context) error {
		require.NoError(t, h.bal.Move(ctx, Native, alice, bob, big.NewInt(100)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, _, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin, st.Admin)
	assert.Equal(t, uint64(2), st.NextID)
	assert.Equal(t, int64(500), h.balance(t, Native, alice), "moves inside the effect roll back too")

	events, err := s.Events(ctx, 0)
	require.NoError(t, err)
	for _, ev := range events {
		assert.NotEqual(t, "TEST", ev.Action)
	}

	// An investment whose collection fails leaves nothing behind.
	_, err = h.lp.Invest(ctx, bob, id, big.NewInt(50))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	st, projects, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, projects[0].TotalRaised.Sign())
	assert.Equal(t, uint64(2), st.NextID)
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

func TestEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, ":memory:")
	h := newHarness(t, s)
	require.NoError(t, h.lp.Pause(ctx, admin))
	require.NoError(t, h.lp.Unpause(ctx, admin))

	events, err := h.lp.Events(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, launchpad.ActionUnpause, events[0].Action)
	assert.Equal(t, launchpad.ActionPause, events[1].Action)
	assert.Equal(t, launchpad.ActionInit, events[2].Action)
	assert.Greater(t, events[0].Seq, events[1].Seq)
	assert.Equal(t, admin, events[0].Actor)
	assert.True(t, events[0].At.Equal(h.now))

	latest, err := h.lp.Events(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, launchpad.ActionUnpause, latest[0].Action)
}

func TestEventsCarryProjectID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, ":memory:")
	h := newHarness(t, s)
	id, err := h.lp.ListProject(ctx, owner, h.listing())
	require.NoError(t, err)

	events, err := s.Events(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, launchpad.ActionList, events[0].Action)
	assert.Equal(t, id, events[0].ProjectID)
	assert.Equal(t, owner, events[0].Actor)
}

// ---------------------------------------------------------------------------
// Balances
// ---------------------------------------------------------------------------

func TestBalancesMintAndMove(t *testing.T) {
	ctx := context.Background()
	b := openStore(t, ":memory:").Balances(custody)

	require.NoError(t, b.Mint(ctx, sale, custody, big.NewInt(100)))
	require.NoError(t, b.Mint(ctx, sale, custody, big.NewInt(1)))
	require.NoError(t, b.Move(ctx, sale, custody, alice, big.NewInt(40)))

	got, err := b.BalanceOf(ctx, sale, custody)
	require.NoError(t, err)
	assert.Equal(t, int64(61), got.Int64())
	got, err = b.BalanceOf(ctx, sale, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Int64())

	assert.ErrorIs(t, b.Move(ctx, sale, alice, bob, big.NewInt(41)), ErrInsufficientBalance)
	assert.Error(t, b.Mint(ctx, sale, alice, big.NewInt(0)))
}

func TestBalancesLargeAmounts(t *testing.T) {
	ctx := context.Background()
	b := openStore(t, ":memory:").Balances(custody)
	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	require.NoError(t, b.Mint(ctx, Native, alice, huge))
	got, err := b.BalanceOf(ctx, Native, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cmp(huge))
}

func TestBalancesAssetAndPayments(t *testing.T) {
	ctx := context.Background()
	b := openStore(t, ":memory:").Balances(custody)
	require.NoError(t, b.Mint(ctx, sale, custody, big.NewInt(10)))
	require.NoError(t, b.Mint(ctx, Native, alice, big.NewInt(10)))

	a, err := b.Asset(sale)
	require.NoError(t, err)
	require.NoError(t, a.Transfer(ctx, alice, big.NewInt(3)))
	bal, err := a.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), bal.Int64())

	require.NoError(t, b.Collect(ctx, alice, big.NewInt(7)))
	require.NoError(t, b.Pay(ctx, owner, big.NewInt(5)))
	bal, err = b.BalanceOf(ctx, Native, custody)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal.Int64())

	_, err = b.Asset(Native)
	assert.Error(t, err)
}

// TestFullSaleOnSQLite settles a sale end to end with every balance
// booked in the database.
func TestFullSaleOnSQLite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, openStore(t, ":memory:"))
	require.NoError(t, h.bal.Mint(ctx, Native, alice, big.NewInt(1000)))
	require.NoError(t, h.bal.Mint(ctx, Native, bob, big.NewInt(1000)))
	id, err := h.lp.ListProject(ctx, owner, h.listing())
	require.NoError(t, err)
	require.NoError(t, h.bal.Mint(ctx, sale, custody, big.NewInt(150)))

	_, err = h.lp.Invest(ctx, alice, id, big.NewInt(100))
	require.NoError(t, err)
	_, err = h.lp.Invest(ctx, bob, id, big.NewInt(41))
	require.NoError(t, err)

	h.now = h.now.Add(time.Hour)
	claimed, err := h.lp.ClaimAllocation(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50), claimed.Int64())

	paid, err := h.lp.WithdrawAmountRaised(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, int64(141), paid.Int64())

	// 150 funded, 70 allocated, 50 claimed: 20 still owed to bob.
	swept, err := h.lp.Sweep(ctx, owner, id, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(80), swept.Int64())

	assert.Equal(t, int64(50), h.balance(t, sale, alice))
	assert.Equal(t, int64(80), h.balance(t, sale, owner))
	assert.Equal(t, int64(20), h.balance(t, sale, custody))
	assert.Equal(t, int64(141), h.balance(t, Native, owner))
	assert.Zero(t, h.balance(t, Native, custody))

	// Settlement flags survive a reload.
	h2 := newHarness(t, h.store)
	h2.now = h.now
	p, err := h2.lp.Project(id)
	require.NoError(t, err)
	assert.True(t, p.Withdrawn)
	assert.True(t, p.Swept)
	_, err = h2.lp.Sweep(ctx, owner, id, owner)
	require.ErrorIs(t, err, launchpad.ErrAlreadySwept)
}
