package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestProcessMonitor(t *testing.T) {
	reg := prometheus.NewRegistry()
	mon := NewProcessMonitor(reg, "test", zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mon.Start(ctx, time.Hour)

	stats := mon.Last()
	assert.Greater(t, stats.Goroutines, 0)
	assert.Greater(t, stats.HeapAlloc, uint64(0))
	assert.GreaterOrEqual(t, stats.LastGCPause, time.Duration(0))

	assert.Equal(t, float64(stats.Goroutines), testutil.ToFloat64(mon.metrics.goroutines))
	assert.Len(t, mon.LogFields(), 3)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	mon.Stop()
	mon.Stop()
}

func TestCollect(t *testing.T) {
	mon := NewProcessMonitor(prometheus.NewRegistry(), "test", nil)
	stats := mon.Collect()
	assert.Equal(t, stats, mon.Last())
}

func BenchmarkCollect(b *testing.B) {
	mon := NewProcessMonitor(prometheus.NewRegistry(), "bench", nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = mon.Collect()
	}
}
