// Package simulator dry-runs helper contract liquidations with eth_call.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/chain"
	"github.com/michaelpento.lv/liquidator/types"
)

// ErrEncoderNotDeployed is returned on deployments without an L2 encoder.
var ErrEncoderNotDeployed = errors.New("l2 encoder not deployed")

// Config locates the contracts involved in a helper liquidation.
type Config struct {
	Encoder    common.Address
	Liquidator common.Address
	PoolFee    uint32
}

// SimulationResult is the outcome of a simulated liquidation.
type SimulationResult struct {
	Encoded aave.EncodedLiquidation
	Gain    *big.Int
}

// Simulator handles helper simulation
type Simulator struct {
	caller chain.Caller
	cfg    Config
}

// NewSimulator creates a new helper simulator
func NewSimulator(caller chain.Caller, cfg Config) (*Simulator, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller cannot be nil")
	}
	return &Simulator{caller: caller, cfg: cfg}, nil
}

// Encode asks the L2 encoder for the compact form of a liquidationCall.
func (s *Simulator) Encode(ctx context.Context, opp *types.LiquidationOpportunity) (aave.EncodedLiquidation, error) {
	if s.cfg.Encoder == (common.Address{}) {
		return aave.EncodedLiquidation{}, ErrEncoderNotDeployed
	}

	data, err := aave.PackEncodeLiquidationCall(opp.Collateral, opp.Debt, opp.Borrower, opp.DebtToCover, false)
	if err != nil {
		return aave.EncodedLiquidation{}, fmt.Errorf("failed to pack encoder call: %w", err)
	}
	out, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.cfg.Encoder, Data: data}, nil)
	if err != nil {
		return aave.EncodedLiquidation{}, fmt.Errorf("failed to encode liquidation: %w", err)
	}
	return aave.UnpackEncodeLiquidationCall(out)
}

// SimulateLiquidation runs the helper's liquidate as from and returns the
// gain it reports, in collateral units. The gain may be negative.
func (s *Simulator) SimulateLiquidation(ctx context.Context, from common.Address, opp *types.LiquidationOpportunity) (*SimulationResult, error) {
	encoded, err := s.Encode(ctx, opp)
	if err != nil {
		return nil, err
	}

	data, err := aave.PackLiquidate(opp.Collateral, opp.Debt, s.cfg.PoolFee, opp.DebtToCover, encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to pack liquidate call: %w", err)
	}
	out, err := s.caller.CallContract(ctx, ethereum.CallMsg{
		From: from,
		To:   &s.cfg.Liquidator,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("liquidation simulation failed: %w", err)
	}

	gain, err := aave.UnpackLiquidate(out)
	if err != nil {
		return nil, err
	}
	return &SimulationResult{Encoded: encoded, Gain: gain}, nil
}
