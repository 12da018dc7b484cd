// Package state rebuilds borrower positions from pool events and persists
// them with a block checkpoint.
package state

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/chain"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// SyncConfig describes where and how to read pool events.
type SyncConfig struct {
	Pool          common.Address
	CreationBlock uint64
	WindowSize    uint64
}

// SyncResult summarises one pass.
type SyncResult struct {
	From         uint64
	To           uint64
	Windows      int
	Events       int
	NewBorrowers int
	Borrowers    int
	Fingerprint  uint64
	UpToDate     bool
}

// Synchronizer owns the borrower map and its checkpoint.
type Synchronizer struct {
	reader  chain.LogReader
	store   *Store
	cfg     SyncConfig
	logger  *zap.Logger
	metrics *metrics.SyncMetrics

	loaded     bool
	checkpoint uint64
	// ingested is set once the checkpoint block itself has been read.
	ingested  bool
	borrowers Borrowers
}

func NewSynchronizer(reader chain.LogReader, store *Store, cfg SyncConfig, logger *zap.Logger, m *metrics.SyncMetrics) (*Synchronizer, error) {
	if reader == nil {
		return nil, fmt.Errorf("log reader cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.WindowSize == 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewSyncMetrics(prometheus.NewRegistry(), metrics.Namespace)
	}
	return &Synchronizer{
		reader:    reader,
		store:     store,
		cfg:       cfg,
		logger:    logger.Named("sync"),
		metrics:   m,
		borrowers: make(Borrowers),
	}, nil
}

// Load adopts the persisted cache, or starts from the creation block when
// there is none. A corrupt cache is returned as an error and nothing is reset.
func (s *Synchronizer) Load() error {
	if s.loaded {
		return nil
	}

	cache, found, err := s.store.Load()
	if err != nil {
		return err
	}
	if found {
		s.checkpoint = cache.LastBlockNumber
		s.ingested = true
		s.borrowers = cache.Borrowers
		s.logger.Info("Loaded state cache",
			zap.String("path", s.store.Path()),
			zap.Uint64("last_block", s.checkpoint),
			zap.Int("borrowers", len(s.borrowers)))
	} else {
		s.checkpoint = s.cfg.CreationBlock
		s.logger.Info("No state cache, starting from protocol creation block",
			zap.String("path", s.store.Path()),
			zap.Uint64("creation_block", s.checkpoint))
	}

	s.loaded = true
	s.metrics.Checkpoint.Set(float64(s.checkpoint))
	s.metrics.BorrowersTotal.Set(float64(len(s.borrowers)))
	return nil
}

// Sync ingests every Borrow and Supply event from the checkpoint through the
// current head. The checkpoint only moves after the whole range was fetched
// and the cache was written.
func (s *Synchronizer) Sync(ctx context.Context) (*SyncResult, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}
	start := time.Now()

	head, err := s.reader.BlockNumber(ctx)
	if err != nil {
		s.metrics.Failures.Inc()
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}

	result := &SyncResult{From: s.checkpoint, To: head}
	if head <= s.checkpoint {
		result.UpToDate = true
		result.Borrowers = len(s.borrowers)
		return result, nil
	}

	windows := Windows(s.checkpoint, head, s.cfg.WindowSize)
	var events []*aave.PositionEvent
	for _, w := range windows {
		logs, err := s.fetch(ctx, w)
		if err != nil {
			s.metrics.Failures.Inc()
			return nil, fmt.Errorf("failed to fetch pool events in blocks %d-%d: %w", w.From, w.To, err)
		}
		s.metrics.WindowsFetched.Inc()

		for _, l := range logs {
			if l.Removed {
				continue
			}
			ev, err := aave.ParsePositionEvent(l)
			if err != nil {
				s.metrics.Failures.Inc()
				return nil, fmt.Errorf("failed to decode pool event in block %d: %w", l.BlockNumber, err)
			}
			events = append(events, ev)
		}
	}

	for _, ev := range events {
		if s.borrowers.Fold(ev) {
			result.NewBorrowers++
		}
		s.metrics.EventsFolded.WithLabelValues(ev.Kind.String()).Inc()
	}

	written, err := s.store.Save(&StateCache{LastBlockNumber: head, Borrowers: s.borrowers})
	if err != nil {
		s.metrics.Failures.Inc()
		return nil, err
	}

	s.metrics.BlocksIngested.Add(float64(s.newBlocks(head)))
	s.checkpoint = head
	s.ingested = true

	result.Windows = len(windows)
	result.Events = len(events)
	result.Borrowers = len(s.borrowers)
	result.Fingerprint = s.borrowers.Fingerprint()

	s.metrics.Checkpoint.Set(float64(head))
	s.metrics.BorrowersTotal.Set(float64(len(s.borrowers)))
	s.metrics.CacheWriteBytes.Set(float64(written))
	s.metrics.PassDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Synchronized borrower state",
		zap.Uint64("from_block", result.From),
		zap.Uint64("to_block", result.To),
		zap.Int("windows", result.Windows),
		zap.Int("events", result.Events),
		zap.Int("new_borrowers", result.NewBorrowers),
		zap.Int("borrowers", result.Borrowers),
		zap.String("fingerprint", fmt.Sprintf("%016x", result.Fingerprint)))
	return result, nil
}

// newBlocks counts blocks up to head not covered by an earlier pass. The
// checkpoint block is re-read on resume but only counted the first time.
func (s *Synchronizer) newBlocks(head uint64) uint64 {
	n := head - s.checkpoint
	if !s.ingested {
		n++
	}
	return n
}

func (s *Synchronizer) fetch(ctx context.Context, w Window) ([]types.Log, error) {
	return s.reader.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(w.From),
		ToBlock:   new(big.Int).SetUint64(w.To),
		Addresses: []common.Address{s.cfg.Pool},
		Topics:    [][]common.Hash{{aave.BorrowEventID(), aave.SupplyEventID()}},
	})
}

// Checkpoint is the last block included in the persisted state.
func (s *Synchronizer) Checkpoint() uint64 {
	return s.checkpoint
}

// Borrower returns the tracked borrower at addr.
func (s *Synchronizer) Borrower(addr common.Address) (*Borrower, bool) {
	b, ok := s.borrowers[addr]
	return b, ok
}

// Borrowers exposes the borrower map. Callers must not modify it.
func (s *Synchronizer) Borrowers() Borrowers {
	return s.borrowers
}
