package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Stats is one sample of the process runtime.
type Stats struct {
	Goroutines  int
	HeapObjects uint64
	HeapAlloc   uint64
	LastGCPause time.Duration
	NumGC       uint32
}

// ProcessMonitor samples runtime statistics into gauges
type ProcessMonitor struct {
	logger  *zap.Logger
	metrics struct {
		goroutines  prometheus.Gauge
		heapObjects prometheus.Gauge
		heapAlloc   prometheus.Gauge
		gcPause     prometheus.Gauge
	}

	mu     sync.Mutex
	last   Stats
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessMonitor creates a new process monitor
func NewProcessMonitor(reg prometheus.Registerer, namespace string, logger *zap.Logger) *ProcessMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ProcessMonitor{logger: logger.Named("monitor")}

	factory := promauto.With(reg)
	m.metrics.goroutines = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "process",
		Name:      "goroutines",
		Help:      "Current number of goroutines",
	})
	m.metrics.heapObjects = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "process",
		Name:      "heap_objects",
		Help:      "Current number of heap objects",
	})
	m.metrics.heapAlloc = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "process",
		Name:      "heap_alloc_bytes",
		Help:      "Current heap allocation in bytes",
	})
	m.metrics.gcPause = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "process",
		Name:      "gc_pause_seconds",
		Help:      "Duration of the most recent GC pause",
	})
	return m
}

// Start samples every interval until ctx is cancelled or Stop is called.
func (m *ProcessMonitor) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.Collect()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Collect()
			}
		}
	}()
}

// Collect takes one sample and publishes it.
func (m *ProcessMonitor) Collect() Stats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := Stats{
		Goroutines:  runtime.NumGoroutine(),
		HeapObjects: memStats.HeapObjects,
		HeapAlloc:   memStats.HeapAlloc,
		NumGC:       memStats.NumGC,
	}
	if memStats.NumGC > 0 {
		stats.LastGCPause = time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256])
	}

	m.metrics.goroutines.Set(float64(stats.Goroutines))
	m.metrics.heapObjects.Set(float64(stats.HeapObjects))
	m.metrics.heapAlloc.Set(float64(stats.HeapAlloc))
	m.metrics.gcPause.Set(stats.LastGCPause.Seconds())

	m.mu.Lock()
	m.last = stats
	m.mu.Unlock()
	return stats
}

// Last returns the most recent sample.
func (m *ProcessMonitor) Last() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// LogFields renders the last sample for a log line.
func (m *ProcessMonitor) LogFields() []zap.Field {
	s := m.Last()
	return []zap.Field{
		zap.Int("goroutines", s.Goroutines),
		zap.Uint64("heap_alloc", s.HeapAlloc),
		zap.Duration("gc_pause", s.LastGCPause),
	}
}

// Stop ends sampling.
func (m *ProcessMonitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
