package multicall_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/multicall"
	"github.com/michaelpento.lv/liquidator/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	backend := testutils.NewFakeBackend()
	oracle := testutils.Addr(0xA0)
	good, bad := testutils.Addr(1), testutils.Addr(2)

	backend.Handle(oracle, aave.OracleABI(), "getAssetPrice", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
		if args[0] == bad {
			return nil, errors.New("execution reverted")
		}
		return testutils.MustPackOutputs(aave.OracleABI(), "getAssetPrice", big.NewInt(2000_00000000)), nil
	})

	client, err := multicall.NewClient(backend, testutils.Multicall3Address)
	require.NoError(t, err)
	assert.Equal(t, testutils.Multicall3Address, client.Address())

	goodData, err := aave.PackGetAssetPrice(good)
	require.NoError(t, err)
	badData, err := aave.PackGetAssetPrice(bad)
	require.NoError(t, err)

	t.Run("mixed results", func(t *testing.T) {
		results, err := client.Execute(context.Background(), []multicall.Call{
			{Target: oracle, AllowFailure: true, CallData: goodData},
			{Target: oracle, AllowFailure: true, CallData: badData},
		}, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.True(t, results[0].Success)
		price, err := aave.UnpackGetAssetPrice(results[0].ReturnData)
		require.NoError(t, err)
		assert.Equal(t, int64(2000_00000000), price.Int64())

		assert.False(t, results[1].Success)
	})

	t.Run("required call failure fails the batch", func(t *testing.T) {
		_, err := client.Execute(context.Background(), []multicall.Call{
			{Target: oracle, AllowFailure: false, CallData: badData},
		}, nil)
		assert.Error(t, err)
	})

	t.Run("empty batch makes no request", func(t *testing.T) {
		before := backend.CallCount
		results, err := client.Execute(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, before, backend.CallCount)
	})

	t.Run("transport failure", func(t *testing.T) {
		backend.CallErr = errors.New("connection refused")
		defer func() { backend.CallErr = nil }()

		_, err := client.Execute(context.Background(), []multicall.Call{
			{Target: oracle, AllowFailure: true, CallData: goodData},
		}, big.NewInt(100))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "block=100")
	})
}

func TestNewClientRequiresCaller(t *testing.T) {
	_, err := multicall.NewClient(nil, testutils.Multicall3Address)
	assert.Error(t, err)
}
