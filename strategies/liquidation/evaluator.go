// Package liquidation prices liquidations of underwater borrowers and turns
// the best one into an action once per cycle.
package liquidation

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/multicall"
	"github.com/michaelpento.lv/liquidator/oracle"
	"github.com/michaelpento.lv/liquidator/reserves"
	"github.com/michaelpento.lv/liquidator/state"
	"github.com/michaelpento.lv/liquidator/types"
	"go.uber.org/zap"
)

// TokenSource resolves reserve configurations.
type TokenSource interface {
	Get(asset common.Address) (*reserves.TokenConfig, error)
}

// Evaluator sizes and prices one liquidation per borrower.
type Evaluator struct {
	multicaller  multicall.Multicaller
	dataProvider common.Address
	tokens       TokenSource
	policy       PairPolicy
	profit       ProfitEstimator
	logger       *zap.Logger
}

func NewEvaluator(mc multicall.Multicaller, dataProvider common.Address, tokens TokenSource, policy PairPolicy, profit ProfitEstimator, logger *zap.Logger) (*Evaluator, error) {
	if mc == nil {
		return nil, fmt.Errorf("multicaller cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	if profit == nil {
		return nil, fmt.Errorf("profit estimator cannot be nil")
	}
	if policy == nil {
		policy = FirstByInsertionOrder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		multicaller:  mc,
		dataProvider: dataProvider,
		tokens:       tokens,
		policy:       policy,
		profit:       profit,
		logger:       logger.Named("evaluator"),
	}, nil
}

// Evaluate reads the borrower's live debt and collateral balance, sizes the
// liquidation and estimates its profit. The returned opportunity may carry a
// non-positive profit.
func (e *Evaluator) Evaluate(ctx context.Context, borrower *state.Borrower, healthFactor *big.Int, snap *oracle.Snapshot) (*types.LiquidationOpportunity, error) {
	collateral, debt, err := e.policy.Choose(borrower)
	if err != nil {
		return nil, err
	}
	if collateral == debt {
		return nil, fmt.Errorf("%w: %s", ErrSameAsset, collateral.Hex())
	}

	colCfg, err := e.tokens.Get(collateral)
	if err != nil {
		return nil, err
	}
	debtCfg, err := e.tokens.Get(debt)
	if err != nil {
		return nil, err
	}
	colPrice, err := snap.Price(collateral)
	if err != nil {
		return nil, err
	}
	debtPrice, err := snap.Price(debt)
	if err != nil {
		return nil, err
	}

	outstanding, balance, err := e.position(ctx, borrower.Address, debt, colCfg.ATokenAddress)
	if err != nil {
		return nil, err
	}

	closeFactor := CloseFactor(healthFactor)
	debtToCover, err := DebtToCover(outstanding, closeFactor)
	if err != nil {
		return nil, err
	}

	sizing := Sizing{
		CollateralPrice:  colPrice,
		DebtPrice:        debtPrice,
		CollateralUnit:   colCfg.Unit(),
		DebtUnit:         debtCfg.Unit(),
		LiquidationBonus: colCfg.LiquidationBonus,
	}
	amounts, err := sizing.Size(debtToCover, balance)
	if err != nil {
		return nil, err
	}
	if amounts.DebtToCover.IsZero() {
		return nil, fmt.Errorf("%w: borrower %s collateral %s debt %s", ErrZeroDebtToCover,
			borrower.Address.Hex(), collateral.Hex(), debt.Hex())
	}

	opp := &types.LiquidationOpportunity{
		Borrower:              borrower.Address,
		Collateral:            collateral,
		Debt:                  debt,
		CollateralSymbol:      colCfg.Symbol,
		DebtSymbol:            debtCfg.Symbol,
		HealthFactor:          new(big.Int).Set(healthFactor),
		DebtToCover:           amounts.DebtToCover.ToBig(),
		CollateralToLiquidate: amounts.CollateralToLiquidate.ToBig(),
	}

	profit, ratio, err := e.profit.Estimate(ctx, &Quote{
		Opportunity:    opp,
		CollateralUnit: sizing.CollateralUnit,
		DebtUnit:       sizing.DebtUnit,
		Snapshot:       snap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate profit: %w", err)
	}
	opp.Profit = profit
	opp.ProfitRatio = ratio

	e.logger.Info("Found opportunity",
		zap.String("borrower", opp.Borrower.Hex()),
		zap.String("collateral", opp.CollateralSymbol),
		zap.String("debt", opp.DebtSymbol),
		zap.Uint64("close_factor", closeFactor),
		zap.Bool("capped", amounts.Capped),
		zap.String("debt_to_cover", opp.DebtToCover.String()),
		zap.String("collateral_to_liquidate", opp.CollateralToLiquidate.String()),
		zap.String("profit", opp.ProfitDecimal().String()),
		zap.String("profit_ratio", opp.ProfitRatio.String()))
	return opp, nil
}

// position reads the outstanding debt and the aToken balance of user in one
// round trip.
func (e *Evaluator) position(ctx context.Context, user, debt, aToken common.Address) (*uint256.Int, *uint256.Int, error) {
	reserveData, err := aave.PackGetUserReserveData(debt, user)
	if err != nil {
		return nil, nil, err
	}
	balanceData, err := aave.PackBalanceOf(user)
	if err != nil {
		return nil, nil, err
	}

	results, err := e.multicaller.Execute(ctx, []multicall.Call{
		{Target: e.dataProvider, CallData: reserveData},
		{Target: aToken, CallData: balanceData},
	}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read position of %s: %w", user.Hex(), err)
	}

	data, err := aave.UnpackGetUserReserveData(results[0].ReturnData)
	if err != nil {
		return nil, nil, err
	}
	balance, err := aave.UnpackBalanceOf(results[1].ReturnData)
	if err != nil {
		return nil, nil, err
	}

	outstanding, overflow := uint256.FromBig(data.TotalDebt())
	if overflow {
		return nil, nil, fmt.Errorf("outstanding debt of %s does not fit in 256 bits", user.Hex())
	}
	bal, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, nil, fmt.Errorf("collateral balance of %s does not fit in 256 bits", user.Hex())
	}
	return outstanding, bal, nil
}

// Select returns the opportunity with the highest profit, keeping the first
// of equal profits. ok is false when there is none or its profit is not
// positive.
func Select(opps []*types.LiquidationOpportunity) (best *types.LiquidationOpportunity, ok bool) {
	for _, opp := range opps {
		if best == nil || opp.Profit.Cmp(best.Profit) > 0 {
			best = opp
		}
	}
	return best, best != nil && best.Profit.Sign() > 0
}
