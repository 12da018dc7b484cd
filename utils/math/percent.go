package math

import "github.com/holiman/uint256"

const (
	// PercentageFactor is 100.00% in basis points.
	PercentageFactor = 10000
	// HalfPercentage is 50.00% in basis points.
	HalfPercentage = 5000
)

var (
	percentageFactor = uint256.NewInt(PercentageFactor)
	halfPercentage   = uint256.NewInt(HalfPercentage)
)

// PercentMul scales value by bps basis points, rounding half up.
func PercentMul(value *uint256.Int, bps uint64) (*uint256.Int, error) {
	if bps == 0 {
		return new(uint256.Int), nil
	}
	p := uint256.NewInt(bps)
	bound := new(uint256.Int).Sub(maxUint256, halfPercentage)
	bound.Div(bound, p)
	if value.Gt(bound) {
		return nil, ErrOverflow
	}

	z := new(uint256.Int).Mul(value, p)
	z.Add(z, halfPercentage)
	return z.Div(z, percentageFactor), nil
}

// PercentDiv divides value by bps basis points, rounding half up.
func PercentDiv(value *uint256.Int, bps uint64) (*uint256.Int, error) {
	if bps == 0 {
		return nil, ErrDivideByZero
	}
	p := uint256.NewInt(bps)
	halfP := uint256.NewInt(bps / 2)
	bound := new(uint256.Int).Sub(maxUint256, halfP)
	bound.Div(bound, percentageFactor)
	if value.Gt(bound) {
		return nil, ErrOverflow
	}

	z := new(uint256.Int).Mul(value, percentageFactor)
	z.Add(z, halfP)
	return z.Div(z, p), nil
}
