// Package chain defines the narrow slices of an Ethereum client each
// component depends on. *ethclient.Client satisfies all of them.
package chain

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// LogReader reads chain height and historical logs.
type LogReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Transactor is everything needed to price, sign and submit a transaction.
type Transactor interface {
	Caller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Backend is the full capability set used by the engine.
type Backend interface {
	Caller
	LogReader
	Transactor
	ChainID(ctx context.Context) (*big.Int, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Dial connects to an RPC endpoint. Over HTTP every request is bounded by
// timeout; zero leaves requests unbounded.
func Dial(ctx context.Context, rawurl string, timeout time.Duration) (*ethclient.Client, error) {
	var opts []rpc.ClientOption
	if timeout > 0 {
		opts = append(opts, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	c, err := rpc.DialOptions(ctx, rawurl, opts...)
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(c), nil
}
