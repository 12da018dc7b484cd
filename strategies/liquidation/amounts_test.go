package liquidation

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	wrmath "github.com/michaelpento.lv/liquidator/utils/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func e18() *uint256.Int { return uint256.NewInt(1e18) }

func TestCloseFactor(t *testing.T) {
	tests := []struct {
		name string
		hf   *big.Int
		want uint64
	}{
		{"just below one", big.NewInt(999_999_999_999_999_999), DefaultCloseFactor},
		{"above threshold", big.NewInt(950_000_000_000_000_001), DefaultCloseFactor},
		{"at threshold", big.NewInt(950_000_000_000_000_000), MaxCloseFactor},
		{"deep underwater", big.NewInt(500_000_000_000_000_000), MaxCloseFactor},
		{"zero", big.NewInt(0), MaxCloseFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CloseFactor(tt.hf))
		})
	}
}

func TestDebtToCover(t *testing.T) {
	got, err := DebtToCover(u(1000), 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got.Uint64())

	got, err = DebtToCover(u(1000), 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got.Uint64())

	got, err = DebtToCover(u(3), 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Uint64(), "truncates")

	_, err = DebtToCover(wrmath.MaxUint256(), 5000)
	assert.ErrorIs(t, err, wrmath.ErrOverflow)
}

func TestBaseCollateral(t *testing.T) {
	s := Sizing{
		CollateralPrice:  u(100),
		DebtPrice:        u(50),
		CollateralUnit:   e18(),
		DebtUnit:         e18(),
		LiquidationBonus: 500,
	}
	base, err := s.BaseCollateral(u(500))
	require.NoError(t, err)
	assert.Equal(t, uint64(250), base.Uint64())

	amounts, err := s.Size(u(500), u(1_000_000))
	require.NoError(t, err)
	want, err := wrmath.PercentMul(u(250), 500)
	require.NoError(t, err)
	assert.Equal(t, want, amounts.CollateralToLiquidate)
	assert.Equal(t, uint64(500), amounts.DebtToCover.Uint64())
	assert.False(t, amounts.Capped)
}

func TestSizeMixedDecimals(t *testing.T) {
	// 1000 USDC (6 decimals) of debt against WETH collateral at 2000 USD,
	// 5% bonus: 0.525 WETH seized.
	s := Sizing{
		CollateralPrice:  u(2000_00000000),
		DebtPrice:        u(1_00000000),
		CollateralUnit:   e18(),
		DebtUnit:         u(1e6),
		LiquidationBonus: 10500,
	}
	amounts, err := s.Size(u(1000_000000), e18())
	require.NoError(t, err)
	assert.Equal(t, uint64(525_000_000_000_000_000), amounts.CollateralToLiquidate.Uint64())
	assert.Equal(t, uint64(1000_000000), amounts.DebtToCover.Uint64())
}

func TestSizeCapsToBalance(t *testing.T) {
	s := Sizing{
		CollateralPrice:  u(2000_00000000),
		DebtPrice:        u(1_00000000),
		CollateralUnit:   e18(),
		DebtUnit:         u(1e6),
		LiquidationBonus: 10500,
	}
	balance := u(105_000_000_000_000_000) // 0.105 WETH

	amounts, err := s.Size(u(1000_000000), balance)
	require.NoError(t, err)
	assert.True(t, amounts.Capped)
	assert.Equal(t, balance, amounts.CollateralToLiquidate)
	// 0.105 WETH at 2000 USD with 5% bonus repays 200 USDC
	assert.Equal(t, uint64(200_000000), amounts.DebtToCover.Uint64())

	// sizing the recomputed debt gives back the balance
	again, err := s.Size(amounts.DebtToCover, balance)
	require.NoError(t, err)
	assert.False(t, again.Capped)
	assert.Equal(t, balance, again.CollateralToLiquidate)
}

func TestSizeErrors(t *testing.T) {
	s := Sizing{
		CollateralPrice:  u(0),
		DebtPrice:        u(1),
		CollateralUnit:   e18(),
		DebtUnit:         e18(),
		LiquidationBonus: 10500,
	}
	_, err := s.Size(u(1), u(1))
	assert.ErrorIs(t, err, wrmath.ErrDivideByZero)

	s.CollateralPrice = u(1)
	s.DebtPrice = wrmath.MaxUint256()
	_, err = s.Size(u(2), u(1))
	assert.ErrorIs(t, err, wrmath.ErrOverflow)
}
