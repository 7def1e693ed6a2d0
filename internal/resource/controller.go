package resource

import (
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for item and context memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxRunningQueries is the maximum number of time-sliced queries
	// running at once. If 0, unlimited.
	MaxRunningQueries int64

	// QueryStartsPerSec limits how many queries may start per second.
	// If 0, unlimited.
	QueryStartsPerSec float64

	// QueryStartBurst is the token bucket size for query starts.
	// If 0, defaults to max(1, QueryStartsPerSec).
	QueryStartBurst int
}

// Controller manages subsystem-wide resources (memory, slots, start rate).
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Running query slots
	slotSem  *semaphore.Weighted // nil if unlimited
	slotUsed atomic.Int64

	// Query starts
	startLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{
		cfg: cfg,
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.MaxRunningQueries > 0 {
		c.slotSem = semaphore.NewWeighted(cfg.MaxRunningQueries)
	}

	if cfg.QueryStartsPerSec > 0 {
		burst := cfg.QueryStartBurst
		if burst <= 0 {
			burst = max(1, int(cfg.QueryStartsPerSec))
		}
		c.startLimiter = rate.NewLimiter(rate.Limit(cfg.QueryStartsPerSec), burst)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control what to drop.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// TryAcquireSlot attempts to reserve a running-query slot without blocking.
func (c *Controller) TryAcquireSlot() bool {
	if c == nil {
		return true
	}
	if c.slotSem != nil && !c.slotSem.TryAcquire(1) {
		return false
	}
	c.slotUsed.Add(1)
	return true
}

// ReleaseSlot releases a running-query slot.
func (c *Controller) ReleaseSlot() {
	if c == nil {
		return
	}
	if c.slotSem != nil {
		c.slotSem.Release(1)
	}
	c.slotUsed.Add(-1)
}

// SlotsInUse returns the number of reserved running-query slots.
func (c *Controller) SlotsInUse() int64 {
	if c == nil {
		return 0
	}
	return c.slotUsed.Load()
}

// AllowStart reports whether a query may start at time now.
// Consumes one token when it returns true.
func (c *Controller) AllowStart(now time.Time) bool {
	if c == nil || c.startLimiter == nil {
		return true
	}
	return c.startLimiter.AllowN(now, 1)
}
