package executor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/config"
	"github.com/michaelpento.lv/liquidator/multicall"
	"github.com/michaelpento.lv/liquidator/types"
	wrmath "github.com/michaelpento.lv/liquidator/utils/math"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type ApproverConfig struct {
	Mode       config.Mode
	ChainID    *big.Int
	Pool       common.Address
	Liquidator common.Address
}

// Approver makes sure the pool may pull every reserve token from whoever
// repays the debt.
type Approver struct {
	multicaller multicall.Multicaller
	sender      *Sender
	cfg         ApproverConfig
	logger      *zap.Logger
	metrics     *metrics.ExecutionMetrics
}

func NewApprover(mc multicall.Multicaller, sender *Sender, cfg ApproverConfig, logger *zap.Logger, m *metrics.ExecutionMetrics) (*Approver, error) {
	if mc == nil {
		return nil, fmt.Errorf("multicaller cannot be nil")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender cannot be nil")
	}
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("chain id must be set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewExecutionMetrics(prometheus.NewRegistry(), metrics.Namespace)
	}
	return &Approver{
		multicaller: mc,
		sender:      sender,
		cfg:         cfg,
		logger:      logger.Named("approver"),
		metrics:     m,
	}, nil
}

// Owner is the account whose allowance to the pool is checked.
func (a *Approver) Owner() common.Address {
	if a.cfg.Mode == config.ModeHelper {
		return a.cfg.Liquidator
	}
	return a.sender.From()
}

// EnsureAllowances approves every token whose allowance to the pool is zero
// and returns the number of approvals submitted. Nonces are taken from a
// local counter so approvals in the same pass do not collide.
func (a *Approver) EnsureAllowances(ctx context.Context, tokens []common.Address) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	owner := a.Owner()

	calls := make([]multicall.Call, len(tokens))
	for i, token := range tokens {
		data, err := aave.PackAllowance(owner, a.cfg.Pool)
		if err != nil {
			return 0, fmt.Errorf("failed to pack allowance call: %w", err)
		}
		calls[i] = multicall.Call{Target: token, CallData: data}
	}
	results, err := a.multicaller.Execute(ctx, calls, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to check allowances: %w", err)
	}

	var missing []common.Address
	for i, res := range results {
		allowance, err := aave.UnpackAllowance(res.ReturnData)
		if err != nil {
			return 0, fmt.Errorf("failed to decode allowance of %s: %w", tokens[i].Hex(), err)
		}
		if allowance.Sign() == 0 {
			missing = append(missing, tokens[i])
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	nonce, err := a.sender.PendingNonce(ctx)
	if err != nil {
		return 0, err
	}

	approved := 0
	for _, token := range missing {
		req, err := a.approval(token)
		if err != nil {
			return approved, err
		}
		tx, err := a.sender.SendWithNonce(ctx, req, nil, nonce)
		if err != nil {
			return approved, fmt.Errorf("failed to approve %s: %w", token.Hex(), err)
		}
		nonce++
		approved++
		a.metrics.Approvals.Inc()
		a.logger.Info("Approved pool",
			zap.String("token", token.Hex()),
			zap.String("owner", owner.Hex()),
			zap.String("tx", tx.Hash().Hex()))
	}
	return approved, nil
}

func (a *Approver) approval(token common.Address) (*types.TxRequest, error) {
	req := &types.TxRequest{
		ChainID: new(big.Int).Set(a.cfg.ChainID),
		From:    a.sender.From(),
		Value:   new(big.Int),
	}

	var err error
	switch a.cfg.Mode {
	case config.ModeDirect:
		req.To = token
		req.Data, err = aave.PackApprove(a.cfg.Pool, wrmath.MaxUint256().ToBig())
	case config.ModeHelper:
		req.To = a.cfg.Liquidator
		req.Data, err = aave.PackApprovePool(token)
	default:
		err = fmt.Errorf("unsupported mode %s", a.cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build approval for %s: %w", token.Hex(), err)
	}
	return req, nil
}
