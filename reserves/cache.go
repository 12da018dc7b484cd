// Package reserves keeps the per-cycle view of every reserve's static risk
// configuration.
package reserves

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/chain"
	"github.com/michaelpento.lv/liquidator/multicall"
	"go.uber.org/zap"
)

// ErrUnknownToken is returned for assets without a usable configuration.
var ErrUnknownToken = errors.New("reserve configuration not available")

// TokenConfig is the static configuration of one reserve.
type TokenConfig struct {
	Address              common.Address
	ATokenAddress        common.Address
	Symbol               string
	Decimals             uint64
	LTV                  uint64
	LiquidationThreshold uint64
	LiquidationBonus     uint64
	ReserveFactor        uint64
	ProtocolFee          uint64
}

// Unit returns 10^Decimals.
func (c *TokenConfig) Unit() *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(c.Decimals))
}

// Cache holds the reserve configurations fetched by the last Refresh.
type Cache struct {
	caller       chain.Caller
	multicaller  multicall.Multicaller
	dataProvider common.Address
	logger       *zap.Logger

	tokens map[common.Address]*TokenConfig
}

func NewCache(caller chain.Caller, mc multicall.Multicaller, dataProvider common.Address, logger *zap.Logger) (*Cache, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller cannot be nil")
	}
	if mc == nil {
		return nil, fmt.Errorf("multicaller cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		caller:       caller,
		multicaller:  mc,
		dataProvider: dataProvider,
		logger:       logger.Named("reserves"),
		tokens:       make(map[common.Address]*TokenConfig),
	}, nil
}

// Refresh replaces the cache with the protocol's current reserve list. A
// reserve whose configuration or fee cannot be read is logged and left out;
// only failures of the listing calls or the batch itself are returned.
func (c *Cache) Refresh(ctx context.Context) error {
	reservesTokens, err := c.tokenList(ctx, aave.PackGetAllReservesTokens, aave.UnpackGetAllReservesTokens)
	if err != nil {
		return fmt.Errorf("failed to list reserves: %w", err)
	}
	aTokens, err := c.tokenList(ctx, aave.PackGetAllATokens, aave.UnpackGetAllATokens)
	if err != nil {
		return fmt.Errorf("failed to list aTokens: %w", err)
	}
	if len(reservesTokens) != len(aTokens) {
		return fmt.Errorf("data provider returned %d reserves but %d aTokens", len(reservesTokens), len(aTokens))
	}

	calls := make([]multicall.Call, 0, 2*len(reservesTokens))
	for _, token := range reservesTokens {
		cfgData, err := aave.PackGetReserveConfigurationData(token.TokenAddress)
		if err != nil {
			return fmt.Errorf("failed to pack reserve configuration call: %w", err)
		}
		feeData, err := aave.PackGetLiquidationProtocolFee(token.TokenAddress)
		if err != nil {
			return fmt.Errorf("failed to pack protocol fee call: %w", err)
		}
		calls = append(calls,
			multicall.Call{Target: c.dataProvider, AllowFailure: true, CallData: cfgData},
			multicall.Call{Target: c.dataProvider, AllowFailure: true, CallData: feeData},
		)
	}

	results, err := c.multicaller.Execute(ctx, calls, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch reserve configurations: %w", err)
	}

	tokens := make(map[common.Address]*TokenConfig, len(reservesTokens))
	for i, token := range reservesTokens {
		cfg, err := buildTokenConfig(token, aTokens[i], results[2*i], results[2*i+1])
		if err != nil {
			c.logger.Warn("Skipping reserve",
				zap.String("symbol", token.Symbol),
				zap.String("asset", token.TokenAddress.Hex()),
				zap.Error(err))
			continue
		}
		tokens[cfg.Address] = cfg
	}

	c.tokens = tokens
	c.logger.Debug("Reserve configurations refreshed",
		zap.Int("reserves", len(reservesTokens)),
		zap.Int("usable", len(tokens)))
	return nil
}

func (c *Cache) tokenList(ctx context.Context, pack func() ([]byte, error), unpack func([]byte) ([]aave.TokenData, error)) ([]aave.TokenData, error) {
	data, err := pack()
	if err != nil {
		return nil, err
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.dataProvider, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return unpack(out)
}

func buildTokenConfig(token, aToken aave.TokenData, cfgResult, feeResult multicall.Result) (*TokenConfig, error) {
	if !cfgResult.Success {
		return nil, fmt.Errorf("configuration call reverted")
	}
	if !feeResult.Success {
		return nil, fmt.Errorf("protocol fee call reverted")
	}
	rc, err := aave.UnpackGetReserveConfigurationData(cfgResult.ReturnData)
	if err != nil {
		return nil, err
	}
	fee, err := aave.UnpackGetLiquidationProtocolFee(feeResult.ReturnData)
	if err != nil {
		return nil, err
	}

	cfg := &TokenConfig{
		Address:       token.TokenAddress,
		ATokenAddress: aToken.TokenAddress,
		Symbol:        token.Symbol,
	}
	fields := []struct {
		name string
		src  *big.Int
		dst  *uint64
	}{
		{"decimals", rc.Decimals, &cfg.Decimals},
		{"ltv", rc.LTV, &cfg.LTV},
		{"liquidation threshold", rc.LiquidationThreshold, &cfg.LiquidationThreshold},
		{"liquidation bonus", rc.LiquidationBonus, &cfg.LiquidationBonus},
		{"reserve factor", rc.ReserveFactor, &cfg.ReserveFactor},
		{"protocol fee", fee, &cfg.ProtocolFee},
	}
	for _, f := range fields {
		if !f.src.IsUint64() {
			return nil, fmt.Errorf("%s %s does not fit in 64 bits", f.name, f.src)
		}
		*f.dst = f.src.Uint64()
	}
	if cfg.Decimals > 77 {
		return nil, fmt.Errorf("decimals %d out of range", cfg.Decimals)
	}
	return cfg, nil
}

// Get returns the configuration of asset.
func (c *Cache) Get(asset common.Address) (*TokenConfig, error) {
	cfg, ok := c.tokens[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, asset.Hex())
	}
	return cfg, nil
}

// Tokens returns every configured asset ordered by address.
func (c *Cache) Tokens() []common.Address {
	out := make([]common.Address, 0, len(c.tokens))
	for addr := range c.tokens {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

func (c *Cache) Len() int {
	return len(c.tokens)
}
