// Package oracle reads every reserve price from the protocol oracle in one
// batch so a cycle values all positions at the same block.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/multicall"
	wrmath "github.com/michaelpento.lv/liquidator/utils/math"
	"go.uber.org/zap"
)

// PriceOne is one unit of the 8-decimal oracle quote.
const PriceOne = 100_000_000

// ErrPriceMissing is returned for assets without a price in the snapshot.
var ErrPriceMissing = errors.New("price not available")

var priceOne = uint256.NewInt(PriceOne)

// Snapshot is a set of oracle prices read together.
type Snapshot struct {
	prices        map[common.Address]*uint256.Int
	wrappedNative common.Address
}

// NewSnapshot builds a snapshot from known prices.
func NewSnapshot(wrappedNative common.Address, prices map[common.Address]*uint256.Int) *Snapshot {
	s := &Snapshot{
		prices:        make(map[common.Address]*uint256.Int, len(prices)),
		wrappedNative: wrappedNative,
	}
	for asset, p := range prices {
		s.prices[asset] = p.Clone()
	}
	return s
}

// Price returns the oracle quote of asset.
func (s *Snapshot) Price(asset common.Address) (*uint256.Int, error) {
	p, ok := s.prices[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPriceMissing, asset.Hex())
	}
	return p.Clone(), nil
}

// PriceInNative returns the price of asset denominated in the wrapped native
// token, scaled by PriceOne.
func (s *Snapshot) PriceInNative(asset common.Address) (*uint256.Int, error) {
	if asset == s.wrappedNative {
		return priceOne.Clone(), nil
	}
	price, err := s.Price(asset)
	if err != nil {
		return nil, err
	}
	native, err := s.Price(s.wrappedNative)
	if err != nil {
		return nil, err
	}
	if native.IsZero() {
		return nil, fmt.Errorf("native price: %w", wrmath.ErrDivideByZero)
	}
	out, overflow := new(uint256.Int).MulDivOverflow(price, priceOne, native)
	if overflow {
		return nil, wrmath.ErrOverflow
	}
	return out, nil
}

func (s *Snapshot) WrappedNative() common.Address {
	return s.wrappedNative
}

func (s *Snapshot) Len() int {
	return len(s.prices)
}

// Reader takes snapshots from the oracle contract.
type Reader struct {
	multicaller   multicall.Multicaller
	oracle        common.Address
	wrappedNative common.Address
	logger        *zap.Logger
}

func NewReader(mc multicall.Multicaller, oracle, wrappedNative common.Address, logger *zap.Logger) (*Reader, error) {
	if mc == nil {
		return nil, fmt.Errorf("multicaller cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		multicaller:   mc,
		oracle:        oracle,
		wrappedNative: wrappedNative,
		logger:        logger.Named("oracle"),
	}, nil
}

// Take reads the price of every asset in one round trip. Assets whose call
// reverts are left out of the snapshot.
func (r *Reader) Take(ctx context.Context, assets []common.Address) (*Snapshot, error) {
	calls := make([]multicall.Call, len(assets))
	for i, asset := range assets {
		data, err := aave.PackGetAssetPrice(asset)
		if err != nil {
			return nil, fmt.Errorf("failed to pack price call: %w", err)
		}
		calls[i] = multicall.Call{Target: r.oracle, AllowFailure: true, CallData: data}
	}

	results, err := r.multicaller.Execute(ctx, calls, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle prices: %w", err)
	}

	snap := &Snapshot{
		prices:        make(map[common.Address]*uint256.Int, len(assets)),
		wrappedNative: r.wrappedNative,
	}
	for i, res := range results {
		if !res.Success {
			r.logger.Warn("Price read reverted", zap.String("asset", assets[i].Hex()))
			continue
		}
		price, err := aave.UnpackGetAssetPrice(res.ReturnData)
		if err != nil {
			r.logger.Warn("Failed to decode price", zap.String("asset", assets[i].Hex()), zap.Error(err))
			continue
		}
		p, overflow := uint256.FromBig(price)
		if overflow {
			r.logger.Warn("Price out of range", zap.String("asset", assets[i].Hex()))
			continue
		}
		snap.prices[assets[i]] = p
	}

	r.logger.Debug("Price snapshot taken", zap.Int("assets", len(assets)), zap.Int("priced", len(snap.prices)))
	return snap, nil
}
