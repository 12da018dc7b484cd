package liquidation

import (
	"math/big"

	"github.com/holiman/uint256"
	wrmath "github.com/michaelpento.lv/liquidator/utils/math"
)

const (
	// DefaultCloseFactor applies while the health factor is above CloseFactorThreshold.
	DefaultCloseFactor uint64 = 5000
	// MaxCloseFactor applies at or below CloseFactorThreshold.
	MaxCloseFactor uint64 = 10000
)

// CloseFactorThreshold is 0.95 in wad.
var CloseFactorThreshold = big.NewInt(950_000_000_000_000_000)

// CloseFactor returns the share of debt, in basis points, that may be repaid
// at the given health factor.
func CloseFactor(healthFactor *big.Int) uint64 {
	if healthFactor.Cmp(CloseFactorThreshold) > 0 {
		return DefaultCloseFactor
	}
	return MaxCloseFactor
}

// DebtToCover is outstanding * closeFactor / 10000, truncating.
func DebtToCover(outstanding *uint256.Int, closeFactor uint64) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(outstanding, uint256.NewInt(closeFactor))
	if overflow {
		return nil, wrmath.ErrOverflow
	}
	return out.Div(out, uint256.NewInt(wrmath.PercentageFactor)), nil
}

// Amounts is the result of sizing one liquidation.
type Amounts struct {
	DebtToCover           *uint256.Int
	CollateralToLiquidate *uint256.Int
	Capped                bool
}

// Sizing carries the prices and units of a (collateral, debt) pair.
type Sizing struct {
	CollateralPrice  *uint256.Int
	DebtPrice        *uint256.Int
	CollateralUnit   *uint256.Int
	DebtUnit         *uint256.Int
	LiquidationBonus uint64
}

// BaseCollateral converts debtToCover into collateral units at oracle prices.
func (s Sizing) BaseCollateral(debtToCover *uint256.Int) (*uint256.Int, error) {
	num, err := mul(s.DebtPrice, debtToCover, s.CollateralUnit)
	if err != nil {
		return nil, err
	}
	den, err := mul(s.CollateralPrice, s.DebtUnit)
	if err != nil {
		return nil, err
	}
	if den.IsZero() {
		return nil, wrmath.ErrDivideByZero
	}
	return num.Div(num, den), nil
}

// Size applies the liquidation bonus to the collateral seized for
// debtToCover. When that exceeds balance the seizure is clamped to balance and
// debtToCover becomes the debt whose bonus-inclusive value equals balance.
func (s Sizing) Size(debtToCover, balance *uint256.Int) (*Amounts, error) {
	base, err := s.BaseCollateral(debtToCover)
	if err != nil {
		return nil, err
	}
	ctl, err := wrmath.PercentMul(base, s.LiquidationBonus)
	if err != nil {
		return nil, err
	}
	if ctl.Cmp(balance) <= 0 {
		return &Amounts{DebtToCover: debtToCover.Clone(), CollateralToLiquidate: ctl}, nil
	}

	ctl = balance.Clone()
	num, err := mul(s.CollateralPrice, ctl, s.DebtUnit)
	if err != nil {
		return nil, err
	}
	den, err := mul(s.DebtPrice, s.CollateralUnit)
	if err != nil {
		return nil, err
	}
	if den.IsZero() {
		return nil, wrmath.ErrDivideByZero
	}
	debtToCover, err = wrmath.PercentDiv(num.Div(num, den), s.LiquidationBonus)
	if err != nil {
		return nil, err
	}
	return &Amounts{DebtToCover: debtToCover, CollateralToLiquidate: ctl, Capped: true}, nil
}

func mul(factors ...*uint256.Int) (*uint256.Int, error) {
	out := uint256.NewInt(1)
	for _, f := range factors {
		if _, overflow := out.MulOverflow(out, f); overflow {
			return nil, wrmath.ErrOverflow
		}
	}
	return out, nil
}
