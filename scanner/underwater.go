// Package scanner finds borrowers whose health factor dropped below one.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/multicall"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultChunkSize     = 500
	DefaultChunkDelay    = 100 * time.Millisecond
	DefaultMaxCandidates = 50
	historySize          = 4096
)

// healthFactorOne is 1e18, the liquidation threshold of the protocol.
var healthFactorOne = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Candidate is an underwater borrower.
type Candidate struct {
	Borrower     common.Address
	HealthFactor *big.Int
}

type Config struct {
	Pool          common.Address
	ChunkSize     int
	ChunkDelay    time.Duration
	MaxCandidates int
}

// Scanner reads health factors in multicall batches.
type Scanner struct {
	multicaller multicall.Multicaller
	cfg         Config
	limiter     *rate.Limiter
	history     *lru.Cache
	logger      *zap.Logger
	metrics     *metrics.ScanMetrics
}

func NewScanner(mc multicall.Multicaller, cfg Config, logger *zap.Logger, m *metrics.ScanMetrics) (*Scanner, error) {
	if mc == nil {
		return nil, fmt.Errorf("multicaller cannot be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkDelay < 0 {
		return nil, fmt.Errorf("chunk delay must not be negative")
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewScanMetrics(prometheus.NewRegistry(), metrics.Namespace)
	}

	history, err := lru.New(historySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create health factor history: %w", err)
	}

	limit := rate.Inf
	if cfg.ChunkDelay > 0 {
		limit = rate.Every(cfg.ChunkDelay)
	}

	return &Scanner{
		multicaller: mc,
		cfg:         cfg,
		limiter:     rate.NewLimiter(limit, 1),
		history:     history,
		logger:      logger.Named("scanner"),
		metrics:     m,
	}, nil
}

// Scan returns at most MaxCandidates underwater borrowers, lowest health
// factor first. Borrowers are read in the order given; once enough
// candidates were collected no further chunks are requested. A failed
// sub-call skips that borrower, a failed batch aborts the scan.
func (s *Scanner) Scan(ctx context.Context, borrowers []common.Address) ([]Candidate, error) {
	start := time.Now()
	defer func() { s.metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	var candidates []Candidate
	for offset := 0; offset < len(borrowers) && len(candidates) < s.cfg.MaxCandidates; offset += s.cfg.ChunkSize {
		end := offset + s.cfg.ChunkSize
		if end > len(borrowers) {
			end = len(borrowers)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		found, err := s.scanChunk(ctx, borrowers[offset:end])
		if err != nil {
			return nil, fmt.Errorf("failed to read health factors for borrowers %d-%d: %w", offset, end-1, err)
		}
		candidates = append(candidates, found...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if c := candidates[i].HealthFactor.Cmp(candidates[j].HealthFactor); c != 0 {
			return c < 0
		}
		return bytes.Compare(candidates[i].Borrower.Bytes(), candidates[j].Borrower.Bytes()) < 0
	})
	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}

	s.metrics.Underwater.Set(float64(len(candidates)))
	for _, c := range candidates {
		s.observe(c)
	}
	s.logger.Debug("Scan complete",
		zap.Int("borrowers", len(borrowers)),
		zap.Int("underwater", len(candidates)),
		zap.Duration("took", time.Since(start)))
	return candidates, nil
}

func (s *Scanner) scanChunk(ctx context.Context, chunk []common.Address) ([]Candidate, error) {
	calls := make([]multicall.Call, len(chunk))
	for i, user := range chunk {
		data, err := aave.PackGetUserAccountData(user)
		if err != nil {
			return nil, err
		}
		calls[i] = multicall.Call{Target: s.cfg.Pool, AllowFailure: true, CallData: data}
	}

	results, err := s.multicaller.Execute(ctx, calls, nil)
	if err != nil {
		return nil, err
	}
	s.metrics.Batches.Inc()
	s.metrics.BorrowersScanned.Add(float64(len(chunk)))

	var out []Candidate
	for i, res := range results {
		if !res.Success {
			s.metrics.SkippedCalls.Inc()
			s.logger.Warn("Health factor read reverted", zap.String("borrower", chunk[i].Hex()))
			continue
		}
		account, err := aave.UnpackGetUserAccountData(res.ReturnData)
		if err != nil {
			s.metrics.SkippedCalls.Inc()
			s.logger.Warn("Failed to decode account data",
				zap.String("borrower", chunk[i].Hex()),
				zap.Error(err))
			continue
		}
		if account.HealthFactor.Cmp(healthFactorOne) < 0 {
			out = append(out, Candidate{Borrower: chunk[i], HealthFactor: account.HealthFactor})
		}
	}
	return out, nil
}

func (s *Scanner) observe(c Candidate) {
	fields := []zap.Field{
		zap.String("borrower", c.Borrower.Hex()),
		zap.String("health_factor", c.HealthFactor.String()),
	}
	if prev, ok := s.history.Get(c.Borrower); ok {
		fields = append(fields, zap.String("previous_health_factor", prev.(*big.Int).String()))
	}
	s.history.Add(c.Borrower, new(big.Int).Set(c.HealthFactor))
	s.logger.Info("Underwater borrower", fields...)
}

// PreviousHealthFactor returns the health factor recorded for borrower by an
// earlier scan.
func (s *Scanner) PreviousHealthFactor(borrower common.Address) (*big.Int, bool) {
	v, ok := s.history.Get(borrower)
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v.(*big.Int)), true
}
