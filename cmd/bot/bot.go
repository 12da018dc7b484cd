package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/liquidator/types"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/michaelpento.lv/liquidator/utils/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Engine runs liquidation cycles.
type Engine interface {
	SyncState(ctx context.Context) error
	ProcessTick(ctx context.Context) ([]types.Action, error)
}

// Submitter signs and broadcasts actions.
type Submitter interface {
	Send(ctx context.Context, req *types.TxRequest, bid *types.GasBidInfo) (*ethtypes.Transaction, error)
}

// Options tune the run loop.
type Options struct {
	Interval    time.Duration
	MetricsAddr string
	Gatherer    prometheus.Gatherer
	Monitor     *monitor.ProcessMonitor
}

const monitorInterval = 15 * time.Second

// Bot represents the liquidator instance
type Bot struct {
	engine  Engine
	sender  Submitter
	opts    Options
	logger  *zap.Logger
	server  *http.Server
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a new liquidator instance
func New(engine Engine, sender Submitter, opts Options, logger *zap.Logger) (*Bot, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender cannot be nil")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		engine: engine,
		sender: sender,
		opts:   opts,
		logger: logger,
	}, nil
}

// Start syncs state once, then runs one cycle immediately and one per
// interval until ctx is cancelled. Cycles never overlap.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.mu.Unlock()

	b.logger.Info("Starting liquidator...", zap.Duration("interval", b.opts.Interval))

	if err := b.engine.SyncState(ctx); err != nil {
		return fmt.Errorf("failed to sync state: %w", err)
	}

	if b.opts.MetricsAddr != "" {
		b.serveMetrics()
	}
	if b.opts.Monitor != nil {
		b.opts.Monitor.Start(ctx, monitorInterval)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run(ctx)
	}()

	return nil
}

// Stop waits for the running cycle to finish. The caller cancels the context
// passed to Start first.
func (b *Bot) Stop() {
	b.logger.Info("Stopping liquidator...")
	if b.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.server.Shutdown(shutdownCtx); err != nil {
			b.logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}
	if b.opts.Monitor != nil {
		b.opts.Monitor.Stop()
	}
	b.wg.Wait()
}

func (b *Bot) run(ctx context.Context) {
	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()

	b.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.RunCycle(ctx)
		}
	}
}

// RunCycle processes one tick and submits every resulting action. It returns
// the number of transactions accepted by the node.
func (b *Bot) RunCycle(ctx context.Context) int {
	actions, err := b.engine.ProcessTick(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			b.logger.Error("Cycle failed", zap.Error(err))
		}
		return 0
	}

	submitted := 0
	for i := range actions {
		action := &actions[i]
		tx, err := b.sender.Send(ctx, action.Tx, action.GasBid)
		if err != nil {
			b.logger.Error("Failed to submit liquidation",
				zap.Error(err),
				zap.String("borrower", action.Opportunity.Borrower.Hex()),
				zap.String("profit", action.Opportunity.ProfitDecimal().String()))
			continue
		}
		submitted++
		b.logger.Info("Submitted liquidation",
			zap.String("tx_hash", tx.Hash().Hex()),
			zap.String("borrower", action.Opportunity.Borrower.Hex()),
			zap.String("collateral", action.Opportunity.CollateralSymbol),
			zap.String("debt", action.Opportunity.DebtSymbol),
			zap.String("profit", action.Opportunity.ProfitDecimal().String()))
	}
	if b.opts.Monitor != nil {
		b.logger.Debug("Cycle complete", append(b.opts.Monitor.LogFields(), zap.Int("submitted", submitted))...)
	}
	return submitted
}

func (b *Bot) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(b.opts.Gatherer))
	b.server = &http.Server{
		Addr:              b.opts.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.logger.Info("Serving metrics", zap.String("addr", b.opts.MetricsAddr))
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("Metrics server error", zap.Error(err))
		}
	}()
}
