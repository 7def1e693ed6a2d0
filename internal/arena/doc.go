// Package arena provides the item payload store for query instances.
//
// An Arena is a contiguous, append-only byte buffer holding fixed-size item
// payloads. Each payload is addressed by a Handle (its byte offset), so item
// records stay small and the whole payload set can be copied in one piece for
// debug capture.
//
// # Memory Accounting
//
// Growth is reported to an optional MemoryAcquirer. If the acquirer refuses,
// Append returns ErrAllocationFailed and the arena keeps its current contents.
//
// # Concurrency
//
// An Arena is owned by exactly one query instance and is NOT safe for
// concurrent use.
package arena
