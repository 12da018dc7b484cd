// Package executor turns a chosen opportunity into signed transactions and
// keeps the pool allowances the liquidations rely on.
package executor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/config"
	"github.com/michaelpento.lv/liquidator/types"
)

// Encoder produces the compact calldata the helper contract expects.
type Encoder interface {
	Encode(ctx context.Context, opp *types.LiquidationOpportunity) (aave.EncodedLiquidation, error)
}

type BuilderConfig struct {
	Mode       config.Mode
	ChainID    *big.Int
	From       common.Address
	Pool       common.Address
	Liquidator common.Address
	PoolFee    uint32
}

// Builder creates unsigned liquidation transactions.
type Builder struct {
	cfg     BuilderConfig
	encoder Encoder
}

func NewBuilder(cfg BuilderConfig, encoder Encoder) (*Builder, error) {
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("chain id must be set")
	}
	if cfg.Mode == config.ModeHelper && encoder == nil {
		return nil, fmt.Errorf("helper mode requires an encoder")
	}
	return &Builder{cfg: cfg, encoder: encoder}, nil
}

// Build returns the liquidation of opp as an unsigned transaction.
func (b *Builder) Build(ctx context.Context, opp *types.LiquidationOpportunity) (*types.TxRequest, error) {
	var (
		to   common.Address
		data []byte
		err  error
	)

	switch b.cfg.Mode {
	case config.ModeDirect:
		to = b.cfg.Pool
		data, err = aave.PackLiquidationCall(opp.Collateral, opp.Debt, opp.Borrower, opp.DebtToCover, false)
		if err != nil {
			return nil, fmt.Errorf("failed to pack liquidationCall: %w", err)
		}
	case config.ModeHelper:
		encoded, err := b.encoder.Encode(ctx, opp)
		if err != nil {
			return nil, err
		}
		to = b.cfg.Liquidator
		data, err = aave.PackLiquidate(opp.Collateral, opp.Debt, b.cfg.PoolFee, opp.DebtToCover, encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to pack liquidate: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported mode %s", b.cfg.Mode)
	}

	return &types.TxRequest{
		ChainID: new(big.Int).Set(b.cfg.ChainID),
		From:    b.cfg.From,
		To:      to,
		Data:    data,
		Value:   new(big.Int),
	}, nil
}
