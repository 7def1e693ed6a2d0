package envquery

import (
	"time"

	"github.com/hupe1980/envquery/debug"
)

// DefaultMaxAllowedTestingTime is the per-Tick time budget.
const DefaultMaxAllowedTestingTime = 5 * time.Millisecond

type options struct {
	logger                *Logger
	metricsCollector      MetricsCollector
	maxAllowedTestingTime time.Duration
	storeDebugInfo        bool
	debugger              *debug.Debugger
	memoryLimit           int64
	maxRunningQueries     int64
	queryStartsPerSec     float64
	queryStartBurst       int
	slowQueryThreshold    time.Duration
	randSeed              int64
	hasRandSeed           bool
	batchParallelism      int
	clock                 func() time.Time
}

// Option configures a Manager.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := envquery.NewJSONLogger(slog.LevelInfo)
//	m := envquery.New(world, envquery.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &envquery.BasicMetricsCollector{}
//	m := envquery.New(world, envquery.WithMetricsCollector(metrics))
//	// ... tick ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithMaxAllowedTestingTime sets the time budget of one Tick across all
// running queries. Each Tick still executes at least one step.
func WithMaxAllowedTestingTime(d time.Duration) Option {
	return func(o *options) {
		o.maxAllowedTestingTime = d
	}
}

// WithStoreDebugInfo makes every instance capture step snapshots. Finished
// queries are recorded in the manager's Debugger, created on demand.
func WithStoreDebugInfo(enabled bool) Option {
	return func(o *options) {
		o.storeDebugInfo = enabled
	}
}

// WithDebugger sets the Debugger that records finished queries.
// It implies WithStoreDebugInfo(true).
func WithDebugger(d *debug.Debugger) Option {
	return func(o *options) {
		o.debugger = d
		if d != nil {
			o.storeDebugInfo = true
		}
	}
}

// WithMemoryLimit caps item and context memory across all queries.
// 0 means tracking only.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMaxRunningQueries caps the number of time-sliced queries.
// 0 means unlimited.
func WithMaxRunningQueries(n int64) Option {
	return func(o *options) {
		o.maxRunningQueries = n
	}
}

// WithQueryStartRate limits how many time-sliced queries start per second.
// burst <= 0 defaults to max(1, perSec).
func WithQueryStartRate(perSec float64, burst int) Option {
	return func(o *options) {
		o.queryStartsPerSec = perSec
		o.queryStartBurst = burst
	}
}

// WithSlowQueryThreshold logs finished queries slower than d at Warn.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *options) {
		o.slowQueryThreshold = d
	}
}

// WithRandSeed makes run-mode randomness reproducible.
func WithRandSeed(seed int64) Option {
	return func(o *options) {
		o.randSeed = seed
		o.hasRandSeed = true
	}
}

// WithBatchParallelism bounds the number of instances RunInstantBatch
// executes at once. Values <= 0 mean unbounded.
func WithBatchParallelism(n int) Option {
	return func(o *options) {
		o.batchParallelism = n
	}
}

// WithClock sets the time source used for budgets and rate limiting.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}
