package envquery

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/envquery/query"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordQuery is called once per finished query, whatever its status.
	// duration is the time spent executing steps.
	RecordQuery(name string, status query.Status, duration time.Duration, steps int)

	// RecordStep is called after each ExecuteOneStep issued by Tick.
	RecordStep(duration time.Duration, itemsProcessed int)

	// RecordRejected is called when a query could not start.
	RecordRejected(reason string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordQuery(string, query.Status, time.Duration, int) {}
func (NoopMetricsCollector) RecordStep(time.Duration, int)                        {}
func (NoopMetricsCollector) RecordRejected(string)                                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	QueryCount      atomic.Int64
	QuerySucceeded  atomic.Int64
	QueryFailed     atomic.Int64
	QueryAborted    atomic.Int64
	QueryTotalNanos atomic.Int64
	StepCount       atomic.Int64
	StepTotalNanos  atomic.Int64
	ItemsProcessed  atomic.Int64
	Rejected        atomic.Int64
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ string, status query.Status, duration time.Duration, _ int) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	switch status {
	case query.Success:
		b.QuerySucceeded.Add(1)
	case query.Aborted, query.OwnerLost:
		b.QueryAborted.Add(1)
	default:
		b.QueryFailed.Add(1)
	}
}

// RecordStep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStep(duration time.Duration, itemsProcessed int) {
	b.StepCount.Add(1)
	b.StepTotalNanos.Add(duration.Nanoseconds())
	b.ItemsProcessed.Add(int64(itemsProcessed))
}

// RecordRejected implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRejected(string) {
	b.Rejected.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		QueryCount:     b.QueryCount.Load(),
		QuerySucceeded: b.QuerySucceeded.Load(),
		QueryFailed:    b.QueryFailed.Load(),
		QueryAborted:   b.QueryAborted.Load(),
		QueryAvgNanos:  avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		StepCount:      b.StepCount.Load(),
		StepAvgNanos:   avg(b.StepTotalNanos.Load(), b.StepCount.Load()),
		ItemsProcessed: b.ItemsProcessed.Load(),
		Rejected:       b.Rejected.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	QueryCount     int64
	QuerySucceeded int64
	QueryFailed    int64
	QueryAborted   int64
	QueryAvgNanos  int64
	StepCount      int64
	StepAvgNanos   int64
	ItemsProcessed int64
	Rejected       int64
}
