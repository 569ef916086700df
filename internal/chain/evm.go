package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrReverted is returned by WaitForReceipt when the transaction was mined
// but failed.
var ErrReverted = errors.New("transaction reverted")

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url          string
	client       *http.Client
	pollInterval time.Duration
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		pollInterval: 2 * time.Second,
	}
}

// SetPollInterval changes how often WaitForReceipt polls the node.
func (c *EVMClient) SetPollInterval(d time.Duration) { c.pollInterval = d }

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// Receipt holds the on-chain receipt of a mined transaction.
type Receipt struct {
	Hash        common.Hash
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// BalanceAt returns the native balance of addr in wei.
func (c *EVMClient) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	var s string
	if err := c.call(ctx, &s, "eth_getBalance", addr, "latest"); err != nil {
		return nil, err
	}
	return decodeBig("balance", s)
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	var s string
	if err := c.call(ctx, &s, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return decodeUint("block number", s)
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	var s string
	if err := c.call(ctx, &s, "eth_chainId"); err != nil {
		return nil, err
	}
	return decodeBig("chain id", s)
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var s string
	if err := c.call(ctx, &s, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return decodeBig("gas price", s)
}

// PendingNonce returns the transaction count of addr including queued
// transactions.
func (c *EVMClient) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	var s string
	if err := c.call(ctx, &s, "eth_getTransactionCount", addr, "pending"); err != nil {
		return 0, err
	}
	return decodeUint("nonce", s)
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (uint64, error) {
	var s string
	if err := c.call(ctx, &s, "eth_estimateGas", callArgs(from, to, data, value)); err != nil {
		return 0, err
	}
	return decodeUint("gas estimate", s)
}

// CallContract runs a read-only call against to and returns the raw result.
func (c *EVMClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var s string
	if err := c.call(ctx, &s, "eth_call", map[string]string{
		"to":   to.Hex(),
		"data": hexutil.Encode(data),
	}, "latest"); err != nil {
		return nil, err
	}
	out, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("could not parse call result %q: %w", s, err)
	}
	return out, nil
}

// SendRawTransaction broadcasts a signed transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var s string
	if err := c.call(ctx, &s, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash(s), nil
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var r *struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
		GasUsed     string `json:"gasUsed"`
	}
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}

	receipt := &Receipt{Hash: hash}
	if v, err := decodeUint("status", r.Status); err == nil {
		receipt.Status = v
	}
	if v, err := decodeUint("block number", r.BlockNumber); err == nil {
		receipt.BlockNumber = v
	}
	if v, err := decodeUint("gas used", r.GasUsed); err == nil {
		receipt.GasUsed = v
	}
	return receipt, nil
}

// WaitForReceipt polls until the transaction is mined, the timeout expires
// or ctx is done. A mined but failed transaction returns ErrReverted along
// with its receipt.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrReverted, hash.Hex())
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined within %s: %w", hash.Hex(), timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (c *EVMClient) call(ctx context.Context, out any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

func callArgs(from, to common.Address, data []byte, value *big.Int) map[string]string {
	args := map[string]string{
		"from": from.Hex(),
		"to":   to.Hex(),
	}
	if len(data) > 0 {
		args["data"] = hexutil.Encode(data)
	}
	if value != nil && value.Sign() > 0 {
		args["value"] = hexutil.EncodeBig(value)
	}
	return args
}

func decodeBig(what, s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("could not parse %s: %q", what, s)
	}
	return n, nil
}

func decodeUint(what, s string) (uint64, error) {
	n, err := decodeBig(what, s)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%s out of range: %q", what, s)
	}
	return n.Uint64(), nil
}

// --- formatting ---

var eth1 = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// WeiToETH converts a wei amount to an ETH decimal string.
func WeiToETH(wei *big.Int) string {
	f := new(big.Float).SetInt(wei)
	f.Quo(f, eth1)
	return f.Text('f', 18)
}

// FormatUnits renders raw with the given number of decimals.
func FormatUnits(raw *big.Int, decimals int) string {
	if decimals <= 0 {
		return raw.String()
	}
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f := new(big.Float).SetInt(raw)
	f.Quo(f, new(big.Float).SetInt(div))
	return f.Text('f', decimals)
}
