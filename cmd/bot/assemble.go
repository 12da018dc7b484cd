package bot

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/liquidator/chain"
	"github.com/michaelpento.lv/liquidator/config"
	"github.com/michaelpento.lv/liquidator/executor"
	"github.com/michaelpento.lv/liquidator/multicall"
	"github.com/michaelpento.lv/liquidator/oracle"
	"github.com/michaelpento.lv/liquidator/reserves"
	"github.com/michaelpento.lv/liquidator/scanner"
	"github.com/michaelpento.lv/liquidator/simulator"
	"github.com/michaelpento.lv/liquidator/state"
	"github.com/michaelpento.lv/liquidator/strategies/liquidation"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/michaelpento.lv/liquidator/utils/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Assemble wires every component for cfg on top of backend. Collectors are
// registered on reg, or on the process-wide registry when reg is nil.
func Assemble(ctx context.Context, cfg *config.Config, backend chain.Backend, reg *prometheus.Registry, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = metrics.Registry()
	}

	deployment, err := cfg.DeploymentConfig()
	if err != nil {
		return nil, err
	}
	mode := cfg.Mode()
	if mode == config.ModeHelper && !deployment.HasL2Encoder() {
		return nil, fmt.Errorf("deployment %s has no l2 encoder, set %s to use direct mode", cfg.Deployment, config.EnvUseAaveLiquidator)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
	}

	syncMetrics := metrics.NewSyncMetrics(reg, metrics.Namespace)
	scanMetrics := metrics.NewScanMetrics(reg, metrics.Namespace)
	strategyMetrics := metrics.NewStrategyMetrics(reg, metrics.Namespace)
	execMetrics := metrics.NewExecutionMetrics(reg, metrics.Namespace)

	mc, err := multicall.NewClient(backend, cfg.Multicall3())
	if err != nil {
		return nil, fmt.Errorf("failed to create multicall client: %w", err)
	}

	reserveCache, err := reserves.NewCache(backend, mc, deployment.DataProvider, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reserve cache: %w", err)
	}

	sender, err := executor.NewSender(backend, key, chainID, logger, execMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	approver, err := executor.NewApprover(mc, sender, executor.ApproverConfig{
		Mode:       mode,
		ChainID:    chainID,
		Pool:       deployment.Pool,
		Liquidator: cfg.Liquidator(),
	}, logger, execMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create approver: %w", err)
	}

	synchronizer, err := state.NewSynchronizer(backend, state.NewStore(cfg.StateCacheFile), state.SyncConfig{
		Pool:          deployment.Pool,
		CreationBlock: deployment.CreationBlock,
		WindowSize:    cfg.LogBlockRange,
	}, logger, syncMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create synchronizer: %w", err)
	}

	scan, err := scanner.NewScanner(mc, scanner.Config{
		Pool:          deployment.Pool,
		ChunkSize:     cfg.MulticallChunkSize,
		ChunkDelay:    cfg.ChunkDelay,
		MaxCandidates: cfg.MaxUnderwater,
	}, logger, scanMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	prices, err := oracle.NewReader(mc, deployment.Oracle, deployment.WrappedNative, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create price reader: %w", err)
	}

	sim, err := simulator.NewSimulator(backend, simulator.Config{
		Encoder:    deployment.L2Encoder,
		Liquidator: cfg.Liquidator(),
		PoolFee:    cfg.HelperPoolFee,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	var profit liquidation.ProfitEstimator = liquidation.DirectProfit{}
	if mode == config.ModeHelper {
		profit = liquidation.HelperProfit{Simulator: sim, From: sender.From()}
	}

	evaluator, err := liquidation.NewEvaluator(mc, deployment.DataProvider, reserveCache, liquidation.FirstByInsertionOrder{}, profit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}

	builder, err := executor.NewBuilder(executor.BuilderConfig{
		Mode:       mode,
		ChainID:    chainID,
		From:       sender.From(),
		Pool:       deployment.Pool,
		Liquidator: cfg.Liquidator(),
		PoolFee:    cfg.HelperPoolFee,
	}, sim)
	if err != nil {
		return nil, fmt.Errorf("failed to create builder: %w", err)
	}

	strategy, err := liquidation.NewStrategy(liquidation.Deps{
		Reserves:     reserveCache,
		Allowances:   approver,
		Synchronizer: synchronizer,
		Scanner:      scan,
		Prices:       prices,
		Evaluator:    evaluator,
		Builder:      builder,
	}, cfg.BidPercentage, logger, strategyMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}

	logger.Info("Liquidator assembled",
		zap.String("deployment", cfg.Deployment),
		zap.String("mode", mode.String()),
		zap.String("chain_id", chainID.String()),
		zap.String("from", sender.From().Hex()),
		zap.String("pool", deployment.Pool.Hex()))

	opts := Options{Interval: cfg.PollInterval, Gatherer: reg}
	if cfg.PrometheusEnabled {
		opts.MetricsAddr = cfg.PrometheusEndpoint
		opts.Monitor = monitor.NewProcessMonitor(reg, metrics.Namespace, logger)
	}
	return New(strategy, sender, opts, logger)
}
