package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceDecimals is the precision of oracle prices and of native profit figures.
const PriceDecimals = 8

// weiPerPriceUnit converts an 8-decimal native amount into wei.
var weiPerPriceUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18-PriceDecimals), nil)

// LiquidationOpportunity is one priced (collateral, debt) liquidation of a
// single borrower. It is not modified after the evaluator returns it.
type LiquidationOpportunity struct {
	Borrower   common.Address
	Collateral common.Address
	Debt       common.Address

	CollateralSymbol string
	DebtSymbol       string

	HealthFactor          *big.Int
	DebtToCover           *big.Int
	CollateralToLiquidate *big.Int

	// Profit is signed and denominated in the native currency with
	// PriceDecimals of precision.
	Profit      *big.Int
	ProfitRatio *big.Int
}

// ProfitWei returns Profit scaled to wei.
func (o *LiquidationOpportunity) ProfitWei() *big.Int {
	return new(big.Int).Mul(o.Profit, weiPerPriceUnit)
}

// ProfitDecimal renders Profit for logs.
func (o *LiquidationOpportunity) ProfitDecimal() decimal.Decimal {
	return FormatFixed(o.Profit, PriceDecimals)
}

// FormatFixed interprets v as a fixed-point number with the given decimals.
func FormatFixed(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// TxRequest is an unsigned transaction. Nonce, gas and fees are filled in by
// the sender.
type TxRequest struct {
	ChainID *big.Int
	From    common.Address
	To      common.Address
	Data    []byte
	Value   *big.Int
}

// GasBidInfo asks the sender to spend BidPercentage of TotalProfit (wei) on gas.
type GasBidInfo struct {
	BidPercentage uint64
	TotalProfit   *big.Int
}

// Action is a transaction the engine wants submitted.
type Action struct {
	Tx          *TxRequest
	GasBid      *GasBidInfo
	Opportunity LiquidationOpportunity
}
