package liquidation

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/oracle"
	"github.com/michaelpento.lv/liquidator/reserves"
	"github.com/michaelpento.lv/liquidator/scanner"
	"github.com/michaelpento.lv/liquidator/state"
	"github.com/michaelpento.lv/liquidator/types"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// AllowanceKeeper approves the pool for reserve tokens.
type AllowanceKeeper interface {
	EnsureAllowances(ctx context.Context, tokens []common.Address) (int, error)
}

// TxBuilder turns an opportunity into an unsigned transaction.
type TxBuilder interface {
	Build(ctx context.Context, opp *types.LiquidationOpportunity) (*types.TxRequest, error)
}

// Deps are the components a Strategy drives each cycle.
type Deps struct {
	Reserves     *reserves.Cache
	Allowances   AllowanceKeeper
	Synchronizer *state.Synchronizer
	Scanner      *scanner.Scanner
	Prices       *oracle.Reader
	Evaluator    *Evaluator
	Builder      TxBuilder
}

// Strategy owns all state carried between cycles. Cycles must not overlap.
type Strategy struct {
	deps          Deps
	bidPercentage uint64
	logger        *zap.Logger
	metrics       *metrics.StrategyMetrics
}

func NewStrategy(deps Deps, bidPercentage uint64, logger *zap.Logger, m *metrics.StrategyMetrics) (*Strategy, error) {
	switch {
	case deps.Reserves == nil:
		return nil, fmt.Errorf("reserve cache cannot be nil")
	case deps.Allowances == nil:
		return nil, fmt.Errorf("allowance keeper cannot be nil")
	case deps.Synchronizer == nil:
		return nil, fmt.Errorf("synchronizer cannot be nil")
	case deps.Scanner == nil:
		return nil, fmt.Errorf("scanner cannot be nil")
	case deps.Prices == nil:
		return nil, fmt.Errorf("price reader cannot be nil")
	case deps.Evaluator == nil:
		return nil, fmt.Errorf("evaluator cannot be nil")
	case deps.Builder == nil:
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if bidPercentage > 100 {
		return nil, fmt.Errorf("bid percentage %d exceeds 100", bidPercentage)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewStrategyMetrics(prometheus.NewRegistry(), metrics.Namespace)
	}
	return &Strategy{
		deps:          deps,
		bidPercentage: bidPercentage,
		logger:        logger.Named("strategy"),
		metrics:       m,
	}, nil
}

// SyncState prepares the strategy before the first tick: reserve
// configurations, pool approvals, the persisted borrower state and a first
// catch-up sync.
func (s *Strategy) SyncState(ctx context.Context) error {
	s.logger.Info("Syncing state")

	if err := s.refreshReserves(ctx); err != nil {
		return err
	}
	if _, err := s.deps.Allowances.EnsureAllowances(ctx, s.deps.Reserves.Tokens()); err != nil {
		return fmt.Errorf("failed to ensure allowances: %w", err)
	}
	if err := s.deps.Synchronizer.Load(); err != nil {
		return fmt.Errorf("failed to load state cache: %w", err)
	}
	if _, err := s.deps.Synchronizer.Sync(ctx); err != nil {
		return fmt.Errorf("failed to sync borrower state: %w", err)
	}

	s.logger.Info("Done syncing state",
		zap.Uint64("checkpoint", s.deps.Synchronizer.Checkpoint()),
		zap.Int("borrowers", len(s.deps.Synchronizer.Borrowers())),
		zap.Int("reserves", s.deps.Reserves.Len()))
	return nil
}

// ProcessTick runs one cycle and returns at most one action. An error means
// the cycle was aborted; the next tick retries from the same checkpoint.
func (s *Strategy) ProcessTick(ctx context.Context) ([]types.Action, error) {
	start := time.Now()
	outcome := "aborted"
	defer func() {
		s.metrics.Cycles.WithLabelValues(outcome).Inc()
		s.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.refreshReserves(ctx); err != nil {
		return nil, err
	}
	if _, err := s.deps.Allowances.EnsureAllowances(ctx, s.deps.Reserves.Tokens()); err != nil {
		return nil, fmt.Errorf("failed to ensure allowances: %w", err)
	}
	if _, err := s.deps.Synchronizer.Sync(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync borrower state: %w", err)
	}

	borrowers := s.deps.Synchronizer.Borrowers()
	s.logger.Info("Total borrower count", zap.Int("borrowers", len(borrowers)))

	candidates, err := s.deps.Scanner.Scan(ctx, borrowers.WithDebt())
	if err != nil {
		return nil, fmt.Errorf("failed to scan borrowers: %w", err)
	}
	if len(candidates) == 0 {
		outcome = "idle"
		s.logger.Info("No underwater borrowers found")
		return nil, nil
	}
	s.logger.Info("Found underwater borrowers", zap.Int("count", len(candidates)))

	snap, err := s.deps.Prices.Take(ctx, s.deps.Reserves.Tokens())
	if err != nil {
		return nil, err
	}

	opps := s.evaluate(ctx, candidates, snap)
	best, ok := Select(opps)
	if best == nil {
		outcome = "no_opportunity"
		s.logger.Info("No liquidation could be priced")
		return nil, nil
	}
	profit, _ := best.ProfitDecimal().Float64()
	s.metrics.BestProfit.Set(profit)
	if !ok {
		outcome = "unprofitable"
		s.logger.Info("No profitable ops, passing",
			zap.String("best_borrower", best.Borrower.Hex()),
			zap.String("best_profit", best.ProfitDecimal().String()))
		return nil, nil
	}

	tx, err := s.deps.Builder.Build(ctx, best)
	if err != nil {
		return nil, fmt.Errorf("failed to build liquidation for %s: %w", best.Borrower.Hex(), err)
	}

	outcome = "action"
	s.metrics.Actions.Inc()
	s.logger.Info("Best op",
		zap.String("borrower", best.Borrower.Hex()),
		zap.String("collateral", best.CollateralSymbol),
		zap.String("debt", best.DebtSymbol),
		zap.String("debt_to_cover", best.DebtToCover.String()),
		zap.String("profit", best.ProfitDecimal().String()),
		zap.Uint64("bid_percentage", s.bidPercentage))

	return []types.Action{{
		Tx: tx,
		GasBid: &types.GasBidInfo{
			BidPercentage: s.bidPercentage,
			TotalProfit:   best.ProfitWei(),
		},
		Opportunity: *best,
	}}, nil
}

func (s *Strategy) refreshReserves(ctx context.Context) error {
	if err := s.deps.Reserves.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh reserves: %w", err)
	}
	s.metrics.Reserves.Set(float64(s.deps.Reserves.Len()))
	return nil
}

// evaluate prices every candidate. Failures only drop the affected borrower.
func (s *Strategy) evaluate(ctx context.Context, candidates []scanner.Candidate, snap *oracle.Snapshot) []*types.LiquidationOpportunity {
	opps := make([]*types.LiquidationOpportunity, 0, len(candidates))
	for _, c := range candidates {
		opp, err := s.evaluateOne(ctx, c, snap)
		if err != nil {
			reason := rejectReason(err)
			s.metrics.Rejected.WithLabelValues(reason).Inc()
			s.logger.Info("Liquidation op failed",
				zap.String("borrower", c.Borrower.Hex()),
				zap.String("health_factor", c.HealthFactor.String()),
				zap.String("reason", reason),
				zap.Error(err))
			continue
		}
		s.metrics.Evaluated.Inc()
		opps = append(opps, opp)
	}
	return opps
}

func (s *Strategy) evaluateOne(ctx context.Context, c scanner.Candidate, snap *oracle.Snapshot) (*types.LiquidationOpportunity, error) {
	borrower, ok := s.deps.Synchronizer.Borrower(c.Borrower)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBorrowerNotFound, c.Borrower.Hex())
	}
	return s.deps.Evaluator.Evaluate(ctx, borrower, c.HealthFactor, snap)
}
