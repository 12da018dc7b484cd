package liquidation

import (
	"errors"

	"github.com/michaelpento.lv/liquidator/oracle"
	"github.com/michaelpento.lv/liquidator/reserves"
	wrmath "github.com/michaelpento.lv/liquidator/utils/math"
)

var (
	ErrSameAsset        = errors.New("collateral and debt are the same asset")
	ErrZeroDebtToCover  = errors.New("no debt to cover")
	ErrNoCollateral     = errors.New("borrower has no collateral")
	ErrNoDebt           = errors.New("borrower has no debt")
	ErrBorrowerNotFound = errors.New("borrower not tracked")
)

// rejectReason maps an evaluation error to a metrics label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrSameAsset):
		return "same_asset"
	case errors.Is(err, ErrZeroDebtToCover):
		return "zero_debt_to_cover"
	case errors.Is(err, ErrNoCollateral):
		return "no_collateral"
	case errors.Is(err, ErrNoDebt):
		return "no_debt"
	case errors.Is(err, ErrBorrowerNotFound):
		return "borrower_not_found"
	case errors.Is(err, oracle.ErrPriceMissing):
		return "price_missing"
	case errors.Is(err, reserves.ErrUnknownToken):
		return "unknown_token"
	case errors.Is(err, wrmath.ErrOverflow), errors.Is(err, wrmath.ErrDivideByZero):
		return "arithmetic"
	default:
		return "call_failed"
	}
}
