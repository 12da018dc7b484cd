// Package testutils provides an in-memory chain backend for tests. It routes
// eth_call by target and selector, emulates Multicall3 aggregate3 and records
// every transaction handed to it.
package testutils

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/liquidator/multicall"
	"github.com/stretchr/testify/require"
)

// Multicall3Address is where the fake backend serves aggregate3.
var Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// ErrNoHandler is returned for calls nothing was registered for.
var ErrNoHandler = errors.New("no handler registered")

// Handler answers a decoded call. msg carries the caller for helpers that
// depend on msg.From.
type Handler func(msg ethereum.CallMsg, args []interface{}) ([]byte, error)

type handlerKey struct {
	to       common.Address
	selector [4]byte
}

type registered struct {
	method  abi.Method
	handler Handler
}

// FakeBackend implements chain.Backend in memory.
type FakeBackend struct {
	mu sync.Mutex

	Head    uint64
	HeadErr error

	Logs     []types.Log
	FilterFn func(q ethereum.FilterQuery) ([]types.Log, error)
	Queries  []ethereum.FilterQuery

	Nonce    uint64
	NonceErr error
	GasPrice *big.Int
	GasLimit uint64
	Chain    *big.Int
	SendFn   func(tx *types.Transaction) error
	Sent     []*types.Transaction

	// CallErr fails every CallContract when set.
	CallErr   error
	CallCount int

	handlers     map[handlerKey]registered
	multicallABI abi.ABI
}

func NewFakeBackend() *FakeBackend {
	parsed, err := multicall.ABI()
	if err != nil {
		panic(err)
	}
	return &FakeBackend{
		GasPrice:     big.NewInt(1_000_000_000),
		GasLimit:     300_000,
		Chain:        big.NewInt(1),
		handlers:     make(map[handlerKey]registered),
		multicallABI: parsed,
	}
}

// Handle registers h for calls of method on contract to.
func (f *FakeBackend) Handle(to common.Address, parsed *abi.ABI, method string, h Handler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("unknown method %s", method))
	}
	var sel [4]byte
	copy(sel[:], m.ID)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[handlerKey{to: to, selector: sel}] = registered{method: m, handler: h}
}

// Returns is a Handler that always answers with the packed values.
func Returns(parsed *abi.ABI, method string, values ...interface{}) Handler {
	data := MustPackOutputs(parsed, method, values...)
	return func(ethereum.CallMsg, []interface{}) ([]byte, error) {
		return data, nil
	}
}

// Fails is a Handler that always reverts with err.
func Fails(err error) Handler {
	return func(ethereum.CallMsg, []interface{}) ([]byte, error) {
		return nil, err
	}
}

// MustPackOutputs encodes return values of method.
func MustPackOutputs(parsed *abi.ABI, method string, values ...interface{}) []byte {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("unknown method %s", method))
	}
	data, err := m.Outputs.Pack(values...)
	if err != nil {
		panic(fmt.Sprintf("pack %s outputs: %v", method, err))
	}
	return data
}

func (f *FakeBackend) dispatch(msg ethereum.CallMsg) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	var sel [4]byte
	copy(sel[:], msg.Data[:4])

	f.mu.Lock()
	reg, ok := f.handlers[handlerKey{to: *msg.To, selector: sel}]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s selector %x", ErrNoHandler, msg.To.Hex(), sel)
	}

	args, err := reg.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s args: %w", reg.method.Name, err)
	}
	return reg.handler(msg, args)
}

func (f *FakeBackend) aggregate3(msg ethereum.CallMsg) ([]byte, error) {
	method := f.multicallABI.Methods["aggregate3"]
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	calls := *abi.ConvertType(args[0], new([]multicall.Call)).(*[]multicall.Call)

	results := make([]multicall.Result, len(calls))
	for i, call := range calls {
		target := call.Target
		data, err := f.dispatch(ethereum.CallMsg{From: msg.From, To: &target, Data: call.CallData})
		if err != nil {
			if !call.AllowFailure {
				return nil, fmt.Errorf("multicall3: call %d failed: %w", i, err)
			}
			results[i] = multicall.Result{Success: false, ReturnData: []byte{}}
			continue
		}
		results[i] = multicall.Result{Success: true, ReturnData: data}
	}
	return method.Outputs.Pack(results)
}

func (f *FakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	f.CallCount++
	callErr := f.CallErr
	f.mu.Unlock()
	if callErr != nil {
		return nil, callErr
	}

	if msg.To != nil && *msg.To == Multicall3Address {
		return f.aggregate3(msg)
	}
	return f.dispatch(msg)
}

func (f *FakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Head, f.HeadErr
}

func (f *FakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	fn := f.FilterFn
	logs := f.Logs
	f.mu.Unlock()

	if fn != nil {
		return fn(q)
	}

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	var out []types.Log
	for _, l := range logs {
		if l.BlockNumber >= from && l.BlockNumber <= to {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *FakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Nonce, f.NonceErr
}

func (f *FakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return f.GasLimit, nil
}

func (f *FakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.GasPrice), nil
}

func (f *FakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.Chain), nil
}

func (f *FakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.SendFn != nil {
		if err := f.SendFn(tx); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, tx)
	return nil
}

// SentTransactions returns a copy of every accepted transaction.
func (f *FakeBackend) SentTransactions() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.Sent...)
}

// NewTestKey returns a fresh signing key and its address.
func NewTestKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// Addr builds a deterministic address from a small integer.
func Addr(n uint64) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(n))
}
