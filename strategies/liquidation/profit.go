package liquidation

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/liquidator/oracle"
	"github.com/michaelpento.lv/liquidator/simulator"
	"github.com/michaelpento.lv/liquidator/types"
	wrmath "github.com/michaelpento.lv/liquidator/utils/math"
)

// Quote is a sized opportunity waiting for a profit figure.
type Quote struct {
	Opportunity    *types.LiquidationOpportunity
	CollateralUnit *uint256.Int
	DebtUnit       *uint256.Int
	Snapshot       *oracle.Snapshot
}

// ProfitEstimator values a quote in the native currency with
// types.PriceDecimals of precision.
type ProfitEstimator interface {
	Estimate(ctx context.Context, q *Quote) (profit, ratio *big.Int, err error)
}

// DirectProfit values the seized collateral and the repaid debt at oracle
// prices.
type DirectProfit struct{}

func (DirectProfit) Estimate(_ context.Context, q *Quote) (*big.Int, *big.Int, error) {
	opp := q.Opportunity
	collateralValue, err := nativeValue(q.Snapshot, opp.Collateral, opp.CollateralToLiquidate, q.CollateralUnit)
	if err != nil {
		return nil, nil, err
	}
	debtValue, err := nativeValue(q.Snapshot, opp.Debt, opp.DebtToCover, q.DebtUnit)
	if err != nil {
		return nil, nil, err
	}

	profit := new(big.Int).Sub(collateralValue, debtValue)
	ratio := new(big.Int)
	if debtValue.Sign() != 0 {
		ratio.Mul(collateralValue, big.NewInt(100))
		ratio.Quo(ratio, debtValue)
	}
	return profit, ratio, nil
}

func nativeValue(snap *oracle.Snapshot, asset common.Address, amount *big.Int, unit *uint256.Int) (*big.Int, error) {
	price, err := snap.PriceInNative(asset)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).Mul(price.ToBig(), amount)
	return v.Quo(v, unit.ToBig()), nil
}

// LiquidationSimulator runs a helper liquidation without submitting it.
type LiquidationSimulator interface {
	SimulateLiquidation(ctx context.Context, from common.Address, opp *types.LiquidationOpportunity) (*simulator.SimulationResult, error)
}

// HelperProfit asks the helper contract what it would gain and prices the
// gain, denominated in collateral token units, at the collateral's native
// price.
type HelperProfit struct {
	Simulator LiquidationSimulator
	From      common.Address
}

func (h HelperProfit) Estimate(ctx context.Context, q *Quote) (*big.Int, *big.Int, error) {
	result, err := h.Simulator.SimulateLiquidation(ctx, h.From, q.Opportunity)
	if err != nil {
		return nil, nil, err
	}
	price, err := q.Snapshot.PriceInNative(q.Opportunity.Collateral)
	if err != nil {
		return nil, nil, err
	}
	if q.CollateralUnit == nil || q.CollateralUnit.IsZero() {
		return nil, nil, wrmath.ErrDivideByZero
	}
	profit := new(big.Int).Mul(result.Gain, price.ToBig())
	profit.Quo(profit, q.CollateralUnit.ToBig())
	return profit, new(big.Int), nil
}
