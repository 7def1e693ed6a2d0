// Package resource implements the Controller for subsystem-wide query limits.
//
// The Controller manages three resource types shared by all query instances
// owned by one manager:
//
//   - Memory: Track and limit item arena and context cache bytes (non-blocking, fail-fast)
//   - Slots: Limit the number of concurrently running time-sliced queries
//   - Starts: Rate-limit new query starts to smooth frame cost spikes
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Query Slots    │  Start Rate Limiter     │
//	│  (fail-fast)    │  (semaphore)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireSlot    │  AllowStart             │
//	│  ReleaseMemory  │  TryAcquireSlot │                         │
//	│  MemoryUsage    │  ReleaseSlot    │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// AcquireMemory is non-blocking and returns ErrMemoryLimitExceeded if the
// limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.AcquireMemory(4096); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides what to drop
//	}
//	defer rc.ReleaseMemory(4096)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
