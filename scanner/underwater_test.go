package scanner

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/aave"
	"github.com/michaelpento.lv/liquidator/multicall"
	"github.com/michaelpento.lv/liquidator/utils/metrics"
	"github.com/michaelpento.lv/liquidator/utils/testutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testPool = testutils.Addr(0xbeef)

func milli(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e15))
}

// withHealthFactors answers getUserAccountData from a fixed table. Users not
// in the table revert.
func withHealthFactors(backend *testutils.FakeBackend, hf map[common.Address]*big.Int) {
	backend.Handle(testPool, aave.PoolABI(), "getUserAccountData", func(_ ethereum.CallMsg, args []interface{}) ([]byte, error) {
		user := args[0].(common.Address)
		v, ok := hf[user]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		zero := big.NewInt(0)
		return testutils.MustPackOutputs(aave.PoolABI(), "getUserAccountData", zero, zero, zero, zero, zero, v), nil
	})
}

func newTestScanner(t *testing.T, backend *testutils.FakeBackend, cfg Config) (*Scanner, *metrics.ScanMetrics) {
	mc, err := multicall.NewClient(backend, testutils.Multicall3Address)
	require.NoError(t, err)
	cfg.Pool = testPool
	m := metrics.NewScanMetrics(prometheus.NewRegistry(), "test")
	s, err := NewScanner(mc, cfg, zaptest.NewLogger(t), m)
	require.NoError(t, err)
	return s, m
}

func TestScan(t *testing.T) {
	backend := testutils.NewFakeBackend()
	withHealthFactors(backend, map[common.Address]*big.Int{
		testutils.Addr(1): milli(1200),
		testutils.Addr(2): milli(900),
		testutils.Addr(3): milli(999),
		testutils.Addr(4): milli(1000),
		testutils.Addr(5): milli(900),
	})
	s, m := newTestScanner(t, backend, Config{ChunkSize: 2, ChunkDelay: time.Millisecond})

	borrowers := []common.Address{
		testutils.Addr(1), testutils.Addr(2), testutils.Addr(3),
		testutils.Addr(4), testutils.Addr(5), testutils.Addr(6),
	}
	got, err := s.Scan(context.Background(), borrowers)
	require.NoError(t, err)

	assert.Equal(t, []Candidate{
		{Borrower: testutils.Addr(2), HealthFactor: milli(900)},
		{Borrower: testutils.Addr(5), HealthFactor: milli(900)},
		{Borrower: testutils.Addr(3), HealthFactor: milli(999)},
	}, got)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Batches))
	assert.Equal(t, float64(6), testutil.ToFloat64(m.BorrowersScanned))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SkippedCalls))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Underwater))
}

func TestScanStopsAtCap(t *testing.T) {
	backend := testutils.NewFakeBackend()
	hf := make(map[common.Address]*big.Int)
	var borrowers []common.Address
	for i := uint64(1); i <= 10; i++ {
		addr := testutils.Addr(i)
		hf[addr] = milli(int64(990 - i))
		borrowers = append(borrowers, addr)
	}
	withHealthFactors(backend, hf)
	s, m := newTestScanner(t, backend, Config{ChunkSize: 3, MaxCandidates: 4})

	got, err := s.Scan(context.Background(), borrowers)
	require.NoError(t, err)

	// two chunks reach the cap, the rest is never requested
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Batches))
	require.Len(t, got, 4)
	assert.Equal(t, testutils.Addr(6), got[0].Borrower)
	assert.Equal(t, testutils.Addr(3), got[3].Borrower)
}

func TestScanEmpty(t *testing.T) {
	backend := testutils.NewFakeBackend()
	s, _ := newTestScanner(t, backend, Config{})

	got, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, backend.CallCount)
}

func TestScanBatchFailure(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.CallErr = errors.New("429 too many requests")
	s, _ := newTestScanner(t, backend, Config{})

	_, err := s.Scan(context.Background(), []common.Address{testutils.Addr(1)})
	assert.ErrorContains(t, err, "429")
}

func TestScanHonoursContext(t *testing.T) {
	backend := testutils.NewFakeBackend()
	withHealthFactors(backend, map[common.Address]*big.Int{})
	s, _ := newTestScanner(t, backend, Config{ChunkSize: 1, ChunkDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Scan(ctx, []common.Address{testutils.Addr(1), testutils.Addr(2)})
	assert.Error(t, err)
	assert.Equal(t, 1, backend.CallCount)
}

func TestHealthFactorHistory(t *testing.T) {
	backend := testutils.NewFakeBackend()
	hf := map[common.Address]*big.Int{testutils.Addr(1): milli(980)}
	withHealthFactors(backend, hf)
	s, _ := newTestScanner(t, backend, Config{})

	_, ok := s.PreviousHealthFactor(testutils.Addr(1))
	assert.False(t, ok)

	_, err := s.Scan(context.Background(), []common.Address{testutils.Addr(1)})
	require.NoError(t, err)

	prev, ok := s.PreviousHealthFactor(testutils.Addr(1))
	require.True(t, ok)
	assert.Equal(t, milli(980), prev)
}
