package contract

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/launchpad/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Caller calls read-only (view/pure) contract functions.
type Caller struct {
	client *chain.EVMClient
	abi    ABI
}

// NewCaller creates a Caller for contracts implementing abi.
func NewCaller(client *chain.EVMClient, abi ABI) *Caller {
	return &Caller{client: client, abi: abi}
}

// Call calls a read function on a contract and returns decoded results.
func (c *Caller) Call(ctx context.Context, contractAddr common.Address, funcName string, args ...any) ([]any, error) {
	fn, err := c.abi.Function(funcName)
	if err != nil {
		return nil, err
	}
	if !fn.IsReadFunction() {
		return nil, fmt.Errorf("function %q is not a read function (stateMutability: %s)", funcName, fn.StateMutability)
	}

	calldata, err := c.abi.Pack(funcName, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}

	result, err := c.client.CallContract(ctx, contractAddr, calldata)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}

	decoded, err := c.abi.Unpack(funcName, result)
	if err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return decoded, nil
}
