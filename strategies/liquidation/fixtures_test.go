package liquidation

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/utils/testutils"
)

var (
	poolAddr     = testutils.Addr(0x9001)
	dataProvider = testutils.Addr(0xd0)
	oracleAddr   = testutils.Addr(0x0a)

	weth  = testutils.Addr(1)
	usdc  = testutils.Addr(2)
	aWETH = testutils.Addr(11)
	aUSDC = testutils.Addr(12)
)

type position struct {
	stable, variable *big.Int
}

// market is an in-memory lending market served through a FakeBackend.
type market struct {
	mu sync.Mutex

	prices       map[common.Address]*big.Int
	healthFactor map[common.Address]*big.Int
	debt         map[common.Address]map[common.Address]position
	balances     map[common.Address]map[common.Address]*big.Int
	allowances   map[common.Address]*big.Int
	bonus        int64
}

func wad(milli int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(milli), big.NewInt(1e15))
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newMarket() *market {
	return &market{
		prices: map[common.Address]*big.Int{
			weth: big.NewInt(2000_00000000),
			usdc: big.NewInt(1_00000000),
		},
		healthFactor: make(map[common.Address]*big.Int),
		debt:         make(map[common.Address]map[common.Address]position),
		balances:     map[common.Address]map[common.Address]*big.Int{aWETH: {}, aUSDC: {}},
		allowances:   map[common.Address]*big.Int{weth: big.NewInt(1), usdc: big.NewInt(1)},
		bonus:        10500,
	}
}

func (m *market) setDebt(asset, user common.Address, variable *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.debt[asset] == nil {
		m.debt[asset] = make(map[common.Address]position)
	}
	m.debt[asset][user] = position{stable: big.NewInt(0), variable: variable}
}

func (m *market) setBalance(aToken, user common.Address, v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[aToken][user] = v
}

func (m *market) install(backend *testutils.FakeBackend) {
	dp := aave.DataProviderABI()
	zero := big.NewInt(0)

	backend.Handle(dataProvider, dp, "getAllReservesTokens", testutils.Returns(dp, "getAllReservesTokens", []aave.TokenData{
		{Symbol: "WETH", TokenAddress: weth},
		{Symbol: "USDC", TokenAddress: usdc},
	}))
	backend.Handle(dataProvider, dp, "getAllATokens", testutils.Returns(dp, "getAllATokens", []aave.TokenData{
		{Symbol: "aWETH", TokenAddress: aWETH},
		{Symbol: "aUSDC", TokenAddress: aUSDC},
	}))
	backend.Handle(dataProvider, dp, "getReserveConfigurationData", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
		decimals := int64(18)
		if args[0].(common.Address) == usdc {
			decimals = 6
		}
		m.mu.Lock()
		bonus := m.bonus
		m.mu.Unlock()
		return testutils.MustPackOutputs(dp, "getReserveConfigurationData",
			big.NewInt(decimals), big.NewInt(8000), big.NewInt(8250), big.NewInt(bonus), big.NewInt(1000),
			true, true, false, true, false), nil
	})
	backend.Handle(dataProvider, dp, "getLiquidationProtocolFee", testutils.Returns(dp, "getLiquidationProtocolFee", big.NewInt(1000)))
	backend.Handle(dataProvider, dp, "getUserReserveData", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		p, ok := m.debt[args[0].(common.Address)][args[1].(common.Address)]
		if !ok {
			p = position{stable: zero, variable: zero}
		}
		return testutils.MustPackOutputs(dp, "getUserReserveData",
			zero, p.stable, p.variable, zero, zero, zero, zero, zero, false), nil
	})

	for _, aToken := range []common.Address{aWETH, aUSDC} {
		aToken := aToken
		backend.Handle(aToken, aave.ERC20ABI(), "balanceOf", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			v, ok := m.balances[aToken][args[0].(common.Address)]
			if !ok {
				v = zero
			}
			return testutils.MustPackOutputs(aave.ERC20ABI(), "balanceOf", v), nil
		})
	}
	for _, token := range []common.Address{weth, usdc} {
		token := token
		backend.Handle(token, aave.ERC20ABI(), "allowance", func(ethereum.CallMsg, []interface{}) ([]byte, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			return testutils.MustPackOutputs(aave.ERC20ABI(), "allowance", m.allowances[token]), nil
		})
	}

	backend.Handle(oracleAddr, aave.OracleABI(), "getAssetPrice", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		p, ok := m.prices[args[0].(common.Address)]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return testutils.MustPackOutputs(aave.OracleABI(), "getAssetPrice", p), nil
	})

	backend.Handle(poolAddr, aave.PoolABI(), "getUserAccountData", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		hf, ok := m.healthFactor[args[0].(common.Address)]
		if !ok {
			hf = wad(2000)
		}
		return testutils.MustPackOutputs(aave.PoolABI(), "getUserAccountData", zero, zero, zero, zero, zero, hf), nil
	})
}
