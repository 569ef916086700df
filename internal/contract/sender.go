package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fallbackGasLimit is used when the node cannot estimate a call.
const fallbackGasLimit = 100_000

// TxSigner signs transactions for one account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// Sender sends transactions from a single account and waits for them to
// be mined. Sends are serialized so nonces are assigned in order.
type Sender struct {
	client  *chain.EVMClient
	signer  TxSigner
	chainID *big.Int
	timeout time.Duration

	mu sync.Mutex
}

// NewSender creates a Sender. timeout bounds the wait for each receipt.
func NewSender(client *chain.EVMClient, signer TxSigner, chainID *big.Int, timeout time.Duration) *Sender {
	return &Sender{
		client:  client,
		signer:  signer,
		chainID: chainID,
		timeout: timeout,
	}
}

// From is the sending account.
func (s *Sender) From() common.Address { return s.signer.Address() }

// Invoke calls a write function on a contract.
func (s *Sender) Invoke(ctx context.Context, abi ABI, contractAddr common.Address, funcName string, args ...any) (*chain.Receipt, error) {
	fn, err := abi.Function(funcName)
	if err != nil {
		return nil, err
	}
	if !fn.IsWriteFunction() {
		return nil, fmt.Errorf("function %q is not a write function", funcName)
	}
	calldata, err := abi.Pack(funcName, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	return s.Transact(ctx, contractAddr, calldata, nil)
}

// Transact signs and broadcasts a transaction carrying data and value,
// then waits for its receipt. A reverted transaction returns
// chain.ErrReverted.
func (s *Sender) Transact(ctx context.Context, to common.Address, data []byte, value *big.Int) (*chain.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}
	hash, err := s.broadcast(ctx, to, data, value)
	if err != nil {
		return nil, err
	}
	return s.client.WaitForReceipt(ctx, hash, s.timeout)
}

func (s *Sender) broadcast(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.signer.Address()

	gas, err := s.client.EstimateGas(ctx, from, to, data, value)
	if err != nil {
		gas = fallbackGasLimit
	}

	gasPrice, err := s.client.GasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting gas price: %w", err)
	}

	nonce, err := s.client.PendingNonce(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	raw, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}

	hash, err := s.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("broadcasting transaction: %w", err)
	}
	return hash, nil
}
