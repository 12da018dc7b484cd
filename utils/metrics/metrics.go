package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every collector exported by the liquidator.
const Namespace = "liquidator"

var registry = prometheus.NewRegistry()

// Registry returns the process-wide registry served by Handler.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves g, or the process-wide registry when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = registry
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

type SyncMetrics struct {
	BlocksIngested  prometheus.Counter
	EventsFolded    *prometheus.CounterVec
	WindowsFetched  prometheus.Counter
	Failures        prometheus.Counter
	Checkpoint      prometheus.Gauge
	BorrowersTotal  prometheus.Gauge
	PassDuration    prometheus.Histogram
	CacheWriteBytes prometheus.Gauge
}

func NewSyncMetrics(reg prometheus.Registerer, namespace string) *SyncMetrics {
	factory := promauto.With(reg)
	return &SyncMetrics{
		BlocksIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "blocks_ingested_total",
			Help:      "Total number of blocks covered by successful sync passes",
		}),
		EventsFolded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "events_folded_total",
			Help:      "Total number of pool events folded into borrower state",
		}, []string{"event"}),
		WindowsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "windows_fetched_total",
			Help:      "Total number of log windows fetched",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "failures_total",
			Help:      "Total number of aborted sync passes",
		}),
		Checkpoint: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "checkpoint_block",
			Help:      "Last block fully ingested and persisted",
		}),
		BorrowersTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "borrowers",
			Help:      "Number of tracked borrowers",
		}),
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Help:      "Time taken by a sync pass",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		CacheWriteBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cache_bytes",
			Help:      "Size of the last state cache write",
		}),
	}
}

type ScanMetrics struct {
	BorrowersScanned prometheus.Counter
	Batches          prometheus.Counter
	SkippedCalls     prometheus.Counter
	Underwater       prometheus.Gauge
	ScanDuration     prometheus.Histogram
}

func NewScanMetrics(reg prometheus.Registerer, namespace string) *ScanMetrics {
	factory := promauto.With(reg)
	return &ScanMetrics{
		BorrowersScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "borrowers_scanned_total",
			Help:      "Total number of health factors read",
		}),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "batches_total",
			Help:      "Total number of multicall batches issued",
		}),
		SkippedCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "skipped_calls_total",
			Help:      "Total number of failed or undecodable health factor reads",
		}),
		Underwater: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "underwater_borrowers",
			Help:      "Underwater borrowers returned by the last scan",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Time taken by a scan",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

type StrategyMetrics struct {
	Cycles        *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	Evaluated     prometheus.Counter
	Rejected      *prometheus.CounterVec
	BestProfit    prometheus.Gauge
	Actions       prometheus.Counter
	Reserves      prometheus.Gauge
}

func NewStrategyMetrics(reg prometheus.Registerer, namespace string) *StrategyMetrics {
	factory := promauto.With(reg)
	return &StrategyMetrics{
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "cycles_total",
			Help:      "Total number of cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "cycle_duration_seconds",
			Help:      "Time taken by a full cycle",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		Evaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "opportunities_evaluated_total",
			Help:      "Total number of priced opportunities",
		}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "opportunities_rejected_total",
			Help:      "Total number of abandoned opportunities by reason",
		}, []string{"reason"}),
		BestProfit: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "best_profit_native",
			Help:      "Profit of the best opportunity of the last cycle",
		}),
		Actions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "actions_total",
			Help:      "Total number of liquidation actions emitted",
		}),
		Reserves: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "reserves",
			Help:      "Reserves with a usable configuration",
		}),
	}
}

type ExecutionMetrics struct {
	Submitted prometheus.Counter
	Failed    prometheus.Counter
	Approvals prometheus.Counter
	GasPrice  prometheus.Histogram
}

func NewExecutionMetrics(reg prometheus.Registerer, namespace string) *ExecutionMetrics {
	factory := promauto.With(reg)
	return &ExecutionMetrics{
		Submitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "submitted_total",
			Help:      "Total number of transactions accepted by the node",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "failed_total",
			Help:      "Total number of transactions that could not be submitted",
		}),
		Approvals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "approvals_total",
			Help:      "Total number of approval transactions submitted",
		}),
		GasPrice: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "gas_price_wei",
			Help:      "Gas price attached to submitted transactions",
			Buckets:   prometheus.ExponentialBuckets(1e7, 2, 20),
		}),
	}
}
