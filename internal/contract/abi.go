// Package contract encodes contract calls and sends signed transactions
// over the chain client.
package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ABIEntry is one ABI entry (function, event, etc.).
type ABIEntry struct {
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsReadFunction returns true if the function is read-only (view/pure).
func (e ABIEntry) IsReadFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "view" || e.StateMutability == "pure")
}

// IsWriteFunction returns true if the function modifies state.
func (e ABIEntry) IsWriteFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "nonpayable" || e.StateMutability == "payable")
}

// Signature is the canonical "name(type,...)" form.
func (e ABIEntry) Signature() string {
	types := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		types[i] = p.Type
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector is the first four bytes of the Keccak-256 of the signature.
func (e ABIEntry) Selector() []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(e.Signature()))
	return h.Sum(nil)[:4]
}

// ABI is a parsed contract interface.
type ABI []ABIEntry

// ParseABI decodes a JSON ABI.
func ParseABI(data []byte) (ABI, error) {
	var abi ABI
	if err := json.Unmarshal(data, &abi); err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}
	return abi, nil
}

// Function finds a function entry by name.
func (a ABI) Function(name string) (*ABIEntry, error) {
	for i := range a {
		if a[i].Type == "function" && a[i].Name == name {
			return &a[i], nil
		}
	}
	return nil, fmt.Errorf("function %q not found in ABI", name)
}

// Pack builds calldata for name: selector followed by one 32-byte word per
// argument. Only static types are supported.
func (a ABI) Pack(name string, args ...any) ([]byte, error) {
	fn, err := a.Function(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(fn.Inputs) {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", fn.Signature(), len(fn.Inputs), len(args))
	}
	out := append([]byte{}, fn.Selector()...)
	for i, param := range fn.Inputs {
		word, err := encodeParam(param.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("encoding param %s: %w", param.Name, err)
		}
		out = append(out, word...)
	}
	return out, nil
}

// Unpack decodes the return data of name. Addresses decode to
// common.Address, integers to *big.Int, bools to bool, strings to string.
func (a ABI) Unpack(name string, data []byte) ([]any, error) {
	fn, err := a.Function(name)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(fn.Outputs))
	for i, param := range fn.Outputs {
		off := i * 32
		if off+32 > len(data) {
			return nil, fmt.Errorf("%s: result too short for output %d (%d bytes)", fn.Name, i, len(data))
		}
		v, err := decodeWord(param.Type, data[off:off+32], data)
		if err != nil {
			return nil, fmt.Errorf("%s: output %d: %w", fn.Name, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// --- ABI encoding (static types plus string results) ---

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func encodeParam(typ string, v any) ([]byte, error) {
	word := make([]byte, 32)
	switch {
	case typ == "address":
		addr, ok := v.(common.Address)
		if !ok {
			return nil, fmt.Errorf("want common.Address, got %T", v)
		}
		copy(word[12:], addr.Bytes())

	case strings.HasPrefix(typ, "uint"):
		n, ok := v.(*big.Int)
		if !ok || n == nil {
			return nil, fmt.Errorf("want *big.Int, got %T", v)
		}
		if n.Sign() < 0 || n.Cmp(maxUint256) > 0 {
			return nil, fmt.Errorf("%s out of range: %s", typ, n)
		}
		n.FillBytes(word)

	case typ == "bool":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", v)
		}
		if b {
			word[31] = 1
		}

	default:
		return nil, fmt.Errorf("unsupported type %s", typ)
	}
	return word, nil
}

func decodeWord(typ string, word, full []byte) (any, error) {
	switch {
	case typ == "address":
		return common.BytesToAddress(word[12:]), nil

	case strings.HasPrefix(typ, "uint"):
		return new(big.Int).SetBytes(word), nil

	case typ == "bool":
		return word[31] == 1, nil

	case typ == "string":
		// String uses an offset + length encoding.
		off := new(big.Int).SetBytes(word)
		if !off.IsUint64() || off.Uint64()+32 > uint64(len(full)) {
			return nil, fmt.Errorf("string offset out of range")
		}
		start := off.Uint64()
		length := new(big.Int).SetBytes(full[start : start+32])
		if !length.IsUint64() || start+32+length.Uint64() > uint64(len(full)) {
			return nil, fmt.Errorf("string length out of range")
		}
		return string(full[start+32 : start+32+length.Uint64()]), nil

	default:
		return nil, fmt.Errorf("unsupported type %s", typ)
	}
}
