// Package math replicates the lending protocol's fixed-point arithmetic.
//
// Two domains are supported: wad (18 decimals) and ray (27 decimals). All
// operations round half up and report overflow against the 256-bit word
// before multiplying, matching the on-chain library result for result.
package math

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when an intermediate product would exceed 2^256-1.
	ErrOverflow = errors.New("math: overflow")
	// ErrDivideByZero is returned for a zero divisor.
	ErrDivideByZero = errors.New("math: divide by zero")
)

var (
	maxUint256 = new(uint256.Int).SetAllOne()

	wad     = uint256.NewInt(1e18)
	halfWad = uint256.NewInt(5e17)

	ray     = uint256.MustFromDecimal("1000000000000000000000000000")
	halfRay = uint256.MustFromDecimal("500000000000000000000000000")

	wadRayRatio     = uint256.NewInt(1e9)
	halfWadRayRatio = uint256.NewInt(5e8)
)

// MaxUint256 returns 2^256-1.
func MaxUint256() *uint256.Int { return maxUint256.Clone() }

// Wad returns 1e18.
func Wad() *uint256.Int { return wad.Clone() }

// HalfWad returns 0.5e18.
func HalfWad() *uint256.Int { return halfWad.Clone() }

// Ray returns 1e27.
func Ray() *uint256.Int { return ray.Clone() }

// HalfRay returns 0.5e27.
func HalfRay() *uint256.Int { return halfRay.Clone() }

// WadMul multiplies two wads, rounding half up.
func WadMul(a, b *uint256.Int) (*uint256.Int, error) {
	return mulScaled(a, b, wad, halfWad)
}

// WadDiv divides two wads, rounding half up.
func WadDiv(a, b *uint256.Int) (*uint256.Int, error) {
	return divScaled(a, b, wad)
}

// RayMul multiplies two rays, rounding half up.
func RayMul(a, b *uint256.Int) (*uint256.Int, error) {
	return mulScaled(a, b, ray, halfRay)
}

// RayDiv divides two rays, rounding half up.
func RayDiv(a, b *uint256.Int) (*uint256.Int, error) {
	return divScaled(a, b, ray)
}

// RayToWad converts a ray into a wad, rounding half up on the dropped digits.
func RayToWad(a *uint256.Int) *uint256.Int {
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(a, wadRayRatio, rem)
	if !rem.Lt(halfWadRayRatio) {
		quo.AddUint64(quo, 1)
	}
	return quo
}

// WadToRay converts a wad into a ray.
func WadToRay(a *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, wadRayRatio)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// mulScaled computes (a*b + half) / scale. The bound a <= (MAX-half)/b is
// checked first because the raw product may not fit in 256 bits.
func mulScaled(a, b, scale, half *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return new(uint256.Int), nil
	}
	bound := new(uint256.Int).Sub(maxUint256, half)
	bound.Div(bound, b)
	if a.Gt(bound) {
		return nil, ErrOverflow
	}

	z := new(uint256.Int).Mul(a, b)
	z.Add(z, half)
	return z.Div(z, scale), nil
}

// divScaled computes (a*scale + b/2) / b.
func divScaled(a, b, scale *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivideByZero
	}
	halfB := new(uint256.Int).Rsh(b, 1)
	bound := new(uint256.Int).Sub(maxUint256, halfB)
	bound.Div(bound, scale)
	if a.Gt(bound) {
		return nil, ErrOverflow
	}

	z := new(uint256.Int).Mul(a, scale)
	z.Add(z, halfB)
	return z.Div(z, b), nil
}
