// Package gas turns a bid on expected profit into a gas price.
package gas

import (
	"context"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/liquidator/types"
	"go.uber.org/zap"
)

// PriceSuggester reports the node's current gas price.
type PriceSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Bidder prices transactions from their GasBidInfo.
type Bidder struct {
	client PriceSuggester
	logger *zap.Logger
}

// NewBidder creates a new gas bidder
func NewBidder(client PriceSuggester, logger *zap.Logger) *Bidder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bidder{client: client, logger: logger.Named("gas")}
}

// GasPrice spends bid.BidPercentage of bid.TotalProfit over gasLimit units of
// gas. The result never undercuts the node suggestion. A nil bid or zero gas
// limit falls back to the suggestion.
func (b *Bidder) GasPrice(ctx context.Context, gasLimit uint64, bid *types.GasBidInfo) (*big.Int, error) {
	suggested, err := b.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	if bid == nil || bid.TotalProfit == nil || gasLimit == 0 {
		return suggested, nil
	}

	budget := BidBudget(bid)
	price := new(big.Int).Div(budget, new(big.Int).SetUint64(gasLimit))
	if price.Cmp(suggested) < 0 {
		b.logger.Debug("Bid below node gas price",
			zap.String("bid_price", price.String()),
			zap.String("suggested", suggested.String()))
		return suggested, nil
	}
	return price, nil
}

// BidBudget is the total wei the bid allows to be spent on gas.
func BidBudget(bid *types.GasBidInfo) *big.Int {
	if bid == nil || bid.TotalProfit == nil || bid.TotalProfit.Sign() <= 0 {
		return new(big.Int)
	}
	budget := new(big.Int).Mul(bid.TotalProfit, new(big.Int).SetUint64(bid.BidPercentage))
	return budget.Div(budget, big.NewInt(100))
}
