package token

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/chain"
	"github.com/Mohsinsiddi/launchpad/internal/contract"
	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/Mohsinsiddi/launchpad/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	custody = common.HexToAddress("0x00000000000000000000000000000000000000f6")
	sale    = common.HexToAddress("0x0000000000000000000000000000000000005a1e")
)

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

func TestLedgerMintAndMove(t *testing.T) {
	l := NewLedger(custody)
	require.NoError(t, l.Mint(sale, custody, big.NewInt(100)))

	require.NoError(t, l.Move(sale, custody, alice, big.NewInt(40)))
	assert.Equal(t, int64(60), l.BalanceOf(sale, custody).Int64())
	assert.Equal(t, int64(40), l.BalanceOf(sale, alice).Int64())
	assert.Zero(t, l.BalanceOf(Native, alice).Sign(), "assets are booked separately")

	err := l.Move(sale, alice, owner, big.NewInt(41))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(40), l.BalanceOf(sale, alice).Int64())
}

func TestLedgerMintRejectsNonPositive(t *testing.T) {
	l := NewLedger(custody)
	assert.Error(t, l.Mint(sale, alice, big.NewInt(0)))
	assert.Error(t, l.Mint(sale, alice, nil))
}

func TestLedgerBalanceIsCopy(t *testing.T) {
	l := NewLedger(custody)
	require.NoError(t, l.Mint(sale, alice, big.NewInt(5)))
	l.BalanceOf(sale, alice).SetInt64(1000)
	assert.Equal(t, int64(5), l.BalanceOf(sale, alice).Int64())
}

func TestLedgerPayAndCollect(t *testing.T) {
	l := NewLedger(custody)
	ctx := context.Background()
	require.NoError(t, l.Mint(Native, alice, big.NewInt(50)))

	require.NoError(t, l.Collect(ctx, alice, big.NewInt(30)))
	require.NoError(t, l.Pay(ctx, owner, big.NewInt(25)))
	assert.Equal(t, int64(20), l.BalanceOf(Native, alice).Int64())
	assert.Equal(t, int64(5), l.BalanceOf(Native, custody).Int64())
	assert.Equal(t, int64(25), l.BalanceOf(Native, owner).Int64())

	assert.ErrorIs(t, l.Pay(ctx, owner, big.NewInt(6)), ErrInsufficientBalance)
}

func TestLedgerAsset(t *testing.T) {
	l := NewLedger(custody)
	ctx := context.Background()
	require.NoError(t, l.Mint(sale, custody, big.NewInt(10)))

	a, err := l.Asset(sale)
	require.NoError(t, err)
	require.NoError(t, a.Transfer(ctx, alice, big.NewInt(4)))
	bal, err := a.BalanceOf(ctx, custody)
	require.NoError(t, err)
	assert.Equal(t, int64(6), bal.Int64())

	_, err = l.Asset(Native)
	assert.Error(t, err)
}

// TestLedgerDrivesLaunchpad runs a full sale against the ledger: list,
// fund, invest, then settle both sides.
func TestLedgerDrivesLaunchpad(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	l := NewLedger(custody)
	require.NoError(t, l.Mint(Native, alice, big.NewInt(1000)))
	lp, err := launchpad.New(ctx, launchpad.Params{Admin: admin, Custody: custody, Assets: l, Payments: l}, launchpad.WithClock(clock))
	require.NoError(t, err)

	id, err := lp.ListProject(ctx, owner, launchpad.Listing{
		SaleAsset:     sale,
		TokenPrice:    big.NewInt(4),
		MinInvestment: big.NewInt(8),
		MaxInvestment: big.NewInt(400),
		MaxCap:        big.NewInt(400),
		EndTime:       uint64(now.Add(time.Hour).Unix()),
		Whitelist:     []common.Address{alice},
	})
	require.NoError(t, err)
	require.NoError(t, l.Mint(sale, custody, big.NewInt(100)))

	got, err := lp.Invest(ctx, alice, id, big.NewInt(202))
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Int64(), "allocation truncates")
	assert.Equal(t, int64(798), l.BalanceOf(Native, alice).Int64())

	now = now.Add(time.Hour)
	claimed, err := lp.ClaimAllocation(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50), claimed.Int64())

	paid, err := lp.WithdrawAmountRaised(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, int64(202), paid.Int64())
	assert.Equal(t, int64(202), l.BalanceOf(Native, owner).Int64())

	swept, err := lp.Sweep(ctx, owner, id, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(50), swept.Int64())
	assert.Zero(t, l.BalanceOf(sale, custody).Sign())
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

// Well-known Hardhat/Anvil test account #0. Never fund it on mainnet.
const testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// fakeNode answers eth_call with a fixed balance and mines every raw
// transaction it receives.
type fakeNode struct {
	mu      sync.Mutex
	balance int64
	sent    []*types.Transaction
	lastTo  string
}

func newChain(t *testing.T) (*fakeNode, *Chain) {
	t.Helper()
	n := &fakeNode{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		n.mu.Lock()
		defer n.mu.Unlock()

		var result any
		switch req.Method {
		case "eth_call":
			var args map[string]string
			json.Unmarshal(req.Params[0], &args) //nolint:errcheck
			n.lastTo = args["to"]
			result = hexutil.Encode(common.LeftPadBytes(big.NewInt(n.balance).Bytes(), 32))
		case "eth_getBalance":
			result = "0x2a"
		case "eth_estimateGas":
			result = "0x5208"
		case "eth_gasPrice":
			result = "0x1"
		case "eth_getTransactionCount":
			result = hexutil.EncodeUint64(uint64(len(n.sent)))
		case "eth_sendRawTransaction":
			var raw string
			json.Unmarshal(req.Params[0], &raw) //nolint:errcheck
			tx := new(types.Transaction)
			tx.UnmarshalBinary(hexutil.MustDecode(raw)) //nolint:errcheck
			n.sent = append(n.sent, tx)
			result = tx.Hash().Hex()
		case "eth_getTransactionReceipt":
			result = map[string]any{"status": "0x1", "blockNumber": "0x1", "gasUsed": "0x5208"}
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result}) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)

	client := chain.NewEVMClient(srv.URL)
	client.SetPollInterval(5 * time.Millisecond)
	m := wallet.NewManager()
	_, err := m.AddWithKey("custody", testPrivKeyHex)
	require.NoError(t, err)
	signer, err := m.Signer("custody")
	require.NoError(t, err)
	return n, NewChain(client, contract.NewSender(client, signer, big.NewInt(31337), time.Second))
}

func TestChainAssetBalanceOf(t *testing.T) {
	node, c := newChain(t)
	node.balance = 150

	a, err := c.Asset(sale)
	require.NoError(t, err)
	bal, err := a.BalanceOf(context.Background(), custody)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal.Int64())
	assert.Equal(t, sale.Hex(), node.lastTo)

	_, err = c.Asset(common.Address{})
	assert.Error(t, err)
}

func TestChainAssetTransferAndMint(t *testing.T) {
	node, c := newChain(t)
	ctx := context.Background()

	tok, err := c.ERC20(sale)
	require.NoError(t, err)
	require.NoError(t, tok.Transfer(ctx, alice, big.NewInt(9)))
	require.NoError(t, tok.Mint(ctx, custody, big.NewInt(100)))

	require.Len(t, node.sent, 2)
	assert.Equal(t, "a9059cbb", hex.EncodeToString(node.sent[0].Data()[:4]))
	assert.Equal(t, "40c10f19", hex.EncodeToString(node.sent[1].Data()[:4]))
	assert.Equal(t, sale, *node.sent[1].To())
}

func TestChainPay(t *testing.T) {
	node, c := newChain(t)

	require.NoError(t, c.Pay(context.Background(), owner, big.NewInt(77)))
	require.Len(t, node.sent, 1)
	assert.Equal(t, owner, *node.sent[0].To())
	assert.Equal(t, int64(77), node.sent[0].Value().Int64())

	var _ launchpad.Payments = c
	_, collects := any(c).(launchpad.Collector)
	assert.False(t, collects, "value arrives with the investor's own transaction")
}

func TestChainNativeBalance(t *testing.T) {
	_, c := newChain(t)
	bal, err := c.NativeBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal.Int64())
}

func TestDepositsCollectFromInvestor(t *testing.T) {
	node, c := newChain(t)
	m := wallet.NewManager()
	w, err := m.AddWithKey("investor", "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)
	signer, err := m.Signer("investor")
	require.NoError(t, err)

	d := c.WithInvestor(custody, contract.NewSender(c.client, signer, big.NewInt(31337), time.Second))
	var _ launchpad.Collector = d

	require.NoError(t, d.Collect(context.Background(), w.Address, big.NewInt(300)))
	require.Len(t, node.sent, 1)
	assert.Equal(t, custody, *node.sent[0].To())
	assert.Equal(t, int64(300), node.sent[0].Value().Int64())

	err = d.Collect(context.Background(), alice, big.NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signer for")
	assert.Len(t, node.sent, 1)
}
