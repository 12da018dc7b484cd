package liquidation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/state"
)

// PairPolicy chooses the single (collateral, debt) pair evaluated for a
// borrower.
type PairPolicy interface {
	Name() string
	Choose(b *state.Borrower) (collateral, debt common.Address, err error)
}

// FirstByInsertionOrder picks the first collateral and the first debt asset
// the borrower was ever seen with.
type FirstByInsertionOrder struct{}

func (FirstByInsertionOrder) Name() string { return "first-by-insertion-order" }

func (FirstByInsertionOrder) Choose(b *state.Borrower) (common.Address, common.Address, error) {
	collateral, ok := b.Collateral.First()
	if !ok {
		return common.Address{}, common.Address{}, ErrNoCollateral
	}
	debt, ok := b.Debt.First()
	if !ok {
		return common.Address{}, common.Address{}, ErrNoDebt
	}
	return collateral, debt, nil
}
