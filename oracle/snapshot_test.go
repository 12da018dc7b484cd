package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/multicall"
	wrmath "github.com/michaelpento.lv/liquidator/utils/math"
	"github.com/michaelpento.lv/liquidator/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	weth = testutils.Addr(1)
	usdc = testutils.Addr(2)
	wbtc = testutils.Addr(3)
)

func TestPriceInNative(t *testing.T) {
	snap := NewSnapshot(weth, map[common.Address]*uint256.Int{
		weth: uint256.NewInt(2000_00000000),
		usdc: uint256.NewInt(1_00000000),
		wbtc: uint256.NewInt(60000_00000000),
	})

	tests := []struct {
		name  string
		asset common.Address
		want  uint64
	}{
		{"native is one", weth, PriceOne},
		{"stable", usdc, 50000},
		{"btc", wbtc, 30_00000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snap.PriceInNative(tt.asset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Uint64())
		})
	}

	t.Run("missing price", func(t *testing.T) {
		_, err := snap.PriceInNative(testutils.Addr(9))
		assert.ErrorIs(t, err, ErrPriceMissing)
	})
}

func TestPriceInNativeWithoutNativePrice(t *testing.T) {
	snap := NewSnapshot(weth, map[common.Address]*uint256.Int{usdc: uint256.NewInt(1_00000000)})

	_, err := snap.PriceInNative(usdc)
	assert.ErrorIs(t, err, ErrPriceMissing)

	got, err := snap.PriceInNative(weth)
	require.NoError(t, err, "native is priced by definition")
	assert.Equal(t, uint64(PriceOne), got.Uint64())

	zero := NewSnapshot(weth, map[common.Address]*uint256.Int{weth: uint256.NewInt(0), usdc: uint256.NewInt(1)})
	_, err = zero.PriceInNative(usdc)
	assert.ErrorIs(t, err, wrmath.ErrDivideByZero)
}

func TestSnapshotIsImmutable(t *testing.T) {
	price := uint256.NewInt(5)
	snap := NewSnapshot(weth, map[common.Address]*uint256.Int{usdc: price})
	price.SetUint64(7)

	got, err := snap.Price(usdc)
	require.NoError(t, err)
	got.SetUint64(9)

	again, err := snap.Price(usdc)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), again.Uint64())
}

func TestTake(t *testing.T) {
	oracleAddr := testutils.Addr(0xaa)
	backend := testutils.NewFakeBackend()
	prices := map[common.Address]int64{weth: 2000_00000000, usdc: 1_00000000}
	backend.Handle(oracleAddr, aave.OracleABI(), "getAssetPrice", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
		p, ok := prices[args[0].(common.Address)]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return testutils.MustPackOutputs(aave.OracleABI(), "getAssetPrice", big.NewInt(p)), nil
	})

	mc, err := multicall.NewClient(backend, testutils.Multicall3Address)
	require.NoError(t, err)
	reader, err := NewReader(mc, oracleAddr, weth, zaptest.NewLogger(t))
	require.NoError(t, err)

	snap, err := reader.Take(context.Background(), []common.Address{weth, usdc, wbtc})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.CallCount)
	assert.Equal(t, 2, snap.Len())

	p, err := snap.Price(usdc)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_00000000), p.Uint64())

	_, err = snap.Price(wbtc)
	assert.ErrorIs(t, err, ErrPriceMissing)

	backend.CallErr = errors.New("timeout")
	_, err = reader.Take(context.Background(), []common.Address{weth})
	assert.Error(t, err)
}
