package gas

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/michaelpento.lv/liquidator/types"
	"github.com/michaelpento.lv/liquidator/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingSuggester struct{}

func (failingSuggester) SuggestGasPrice(context.Context) (*big.Int, error) {
	return nil, errors.New("rpc down")
}

func TestGasPrice(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.GasPrice = big.NewInt(1_000_000_000)
	bidder := NewBidder(backend, zaptest.NewLogger(t))

	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	tests := []struct {
		name     string
		gasLimit uint64
		bid      *types.GasBidInfo
		want     *big.Int
	}{
		{"no bid", 300_000, nil, big.NewInt(1_000_000_000)},
		{"half of one ether over 500k gas", 500_000, &types.GasBidInfo{BidPercentage: 50, TotalProfit: oneEther}, big.NewInt(1_000_000_000_000)},
		{"bid below suggestion", 300_000, &types.GasBidInfo{BidPercentage: 1, TotalProfit: big.NewInt(1_000)}, big.NewInt(1_000_000_000)},
		{"zero gas limit", 0, &types.GasBidInfo{BidPercentage: 50, TotalProfit: oneEther}, big.NewInt(1_000_000_000)},
		{"negative profit", 300_000, &types.GasBidInfo{BidPercentage: 50, TotalProfit: big.NewInt(-5)}, big.NewInt(1_000_000_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bidder.GasPrice(context.Background(), tt.gasLimit, tt.bid)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGasPriceError(t *testing.T) {
	bidder := NewBidder(failingSuggester{}, nil)
	_, err := bidder.GasPrice(context.Background(), 1, nil)
	assert.ErrorContains(t, err, "rpc down")
}

func TestBidBudget(t *testing.T) {
	assert.Equal(t, "50", BidBudget(&types.GasBidInfo{BidPercentage: 50, TotalProfit: big.NewInt(100)}).String())
	assert.Equal(t, "0", BidBudget(&types.GasBidInfo{BidPercentage: 0, TotalProfit: big.NewInt(100)}).String())
	assert.Equal(t, "0", BidBudget(nil).String())
}
