package launchpad

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ListProject
// ---------------------------------------------------------------------------

func TestListProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.lp.ListProject(ctx, owner, f.listing())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	p, err := f.lp.Project(id)
	require.NoError(t, err)
	assert.Equal(t, owner, p.Owner)
	assert.Equal(t, saleToken, p.SaleAsset)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, int64(2), p.TokenPrice.Int64())
	assert.Equal(t, int64(300), p.MaxCap.Int64())
	assert.Equal(t, f.clock.Now().UTC(), p.CreatedAt)
	assert.Zero(t, p.TotalRaised.Sign())
	assert.Zero(t, p.TotalAllocated.Sign())
	assert.Equal(t, []common.Address{alice, bob}, p.WhitelistSorted())
	assert.False(t, p.Withdrawn)
	assert.False(t, p.Swept)
}

func TestListProjectIDsIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assets := []common.Address{saleToken, otherSale, common.HexToAddress("0x5a20")}
	for i, asset := range assets {
		l := f.listing()
		l.SaleAsset = asset
		id, err := f.lp.ListProject(ctx, owner, l)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), id)
	}
	assert.Equal(t, 3, f.lp.ProjectCount())

	projects := f.lp.Projects()
	require.Len(t, projects, 3)
	for i, p := range projects {
		assert.Equal(t, uint64(i+1), p.ID)
		assert.Equal(t, assets[i], p.SaleAsset)
	}
}

func TestListProjectValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Listing)
		want   Kind
	}{
		{"zero sale asset", func(l *Listing) { l.SaleAsset = common.Address{} }, KindAddressZero},
		{"zero price", func(l *Listing) { l.TokenPrice = big.NewInt(0) }, KindTokenPriceZero},
		{"nil price", func(l *Listing) { l.TokenPrice = nil }, KindTokenPriceZero},
		{"zero minimum", func(l *Listing) { l.MinInvestment = big.NewInt(0) }, KindMinInvestmentZero},
		{"max below min", func(l *Listing) { l.MaxInvestment = big.NewInt(9) }, KindMaxBelowMinInvestment},
		{"cap below max", func(l *Listing) { l.MaxCap = big.NewInt(99) }, KindMaxCapBelowMaxInvestment},
		{"empty whitelist", func(l *Listing) { l.Whitelist = nil }, KindEmptyAddress},
		{"zero in whitelist", func(l *Listing) { l.Whitelist = []common.Address{alice, {}} }, KindAddressZero},
		{"price checked first", func(l *Listing) {
			l.TokenPrice = big.NewInt(0)
			l.MinInvestment = big.NewInt(0)
			l.Whitelist = nil
		}, KindTokenPriceZero},
		{"bounds checked before whitelist", func(l *Listing) {
			l.MaxCap = big.NewInt(1)
			l.Whitelist = nil
		}, KindMaxCapBelowMaxInvestment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			l := f.listing()
			tt.mutate(&l)
			_, err := f.lp.ListProject(context.Background(), owner, l)
			requireKind(t, err, tt.want)
			assert.Zero(t, f.lp.ProjectCount())
		})
	}
}

func TestListProjectBoundaryTermsAccepted(t *testing.T) {
	f := newFixture(t)
	l := f.listing()
	l.MinInvestment = big.NewInt(50)
	l.MaxInvestment = big.NewInt(50)
	l.MaxCap = big.NewInt(50)

	_, err := f.lp.ListProject(context.Background(), owner, l)
	assert.NoError(t, err)
}

func TestListProjectZeroWhitelistEntryReportsIndex(t *testing.T) {
	f := newFixture(t)
	l := f.listing()
	l.Whitelist = []common.Address{alice, bob, {}}

	_, err := f.lp.ListProject(context.Background(), owner, l)
	requireKind(t, err, KindAddressZero)
	assert.Contains(t, err.Error(), "index 2")
}

func TestListProjectDuplicateWhitelistCollapses(t *testing.T) {
	f := newFixture(t)
	l := f.listing()
	l.Whitelist = []common.Address{alice, alice, bob, alice}

	id, err := f.lp.ListProject(context.Background(), owner, l)
	require.NoError(t, err)
	p, err := f.lp.Project(id)
	require.NoError(t, err)
	assert.Len(t, p.Whitelist, 2)
}

func TestListProjectRejectsActiveSaleAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.lp.ListProject(ctx, owner, f.listing())
	require.NoError(t, err)

	_, err = f.lp.ListProject(ctx, carol, f.listing())
	requireKind(t, err, KindTokenAlreadyWhitelisted)
	assert.Equal(t, 1, f.lp.ProjectCount())
}

func TestListProjectEndedProjectStillBlocksAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.lp.ListProject(ctx, owner, f.listing())
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.lp.ListProject(ctx, owner, f.listing())
	requireKind(t, err, KindTokenAlreadyWhitelisted)
}

func TestListProjectRelistAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.lp.ListProject(ctx, owner, f.listing())
	require.NoError(t, err)
	require.NoError(t, f.lp.CancelProject(ctx, admin, first))

	second, err := f.lp.ListProject(ctx, owner, f.listing())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second)
}

func TestListProjectEndTimeZeroIsImmediatelyEnded(t *testing.T) {
	f := newFixture(t)
	l := f.listing()
	l.EndTime = 0

	id, err := f.lp.ListProject(context.Background(), owner, l)
	require.NoError(t, err)
	p, err := f.lp.Project(id)
	require.NoError(t, err)
	assert.True(t, p.Ended(f.clock.Now()))
	assert.False(t, p.Active(f.clock.Now()))
}

// ---------------------------------------------------------------------------
// AddUserForProject
// ---------------------------------------------------------------------------

func TestAddUserForProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.listFunded(t)

	ok, err := f.lp.IsWhitelisted(id, carol)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.lp.AddUserForProject(ctx, owner, id, carol))

	ok, err = f.lp.IsWhitelisted(id, carol)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.lp.Invest(ctx, carol, id, big.NewInt(10))
	assert.NoError(t, err)
}

func TestAddUserForProjectRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.listFunded(t)

	requireKind(t, f.lp.AddUserForProject(ctx, admin, 99, carol), KindInvalidProjectID)
	requireKind(t, f.lp.AddUserForProject(ctx, owner, 0, carol), KindInvalidProjectID)
	requireKind(t, f.lp.AddUserForProject(ctx, admin, id, carol), KindNotProjectOwner)
	requireKind(t, f.lp.AddUserForProject(ctx, owner, id, common.Address{}), KindAddressZero)
	requireKind(t, f.lp.AddUserForProject(ctx, owner, id, alice), KindUserAlreadyWhitelisted)
}
