package arena

import (
	"errors"
	"fmt"

	"github.com/hupe1980/envquery/internal/conv"
)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrAllocationFailed is returned when the arena cannot grow.
	ErrAllocationFailed = errors.New("arena: allocation failed")
	// ErrStrideMismatch is returned when a payload does not match the arena stride.
	ErrStrideMismatch = errors.New("arena: payload size does not match stride")
)

// MinGrowItems is the minimum number of payloads reserved per growth step.
const MinGrowItems = 64

// Stats tracks arena memory usage metrics.
type Stats struct {
	BytesReserved uint64 // Current: capacity accounted to the acquirer
	BytesUsed     uint64 // Current: bytes holding payloads
	Grows         uint64 // Historical: number of buffer growths
	TotalAppends  uint64 // Historical: payloads appended
}

// Handle addresses one payload inside an Arena.
type Handle uint32

// Offset returns the byte offset of the payload.
func (h Handle) Offset() int { return int(h) }

// Arena is an append-only payload buffer with a fixed stride.
type Arena struct {
	buf      []byte
	stride   int
	reserved int64
	acquirer MemoryAcquirer
	stats    Stats
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer sets the memory acquirer for the arena.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New creates a new Arena for payloads of the given stride.
func New(stride uint16, opts ...Option) *Arena {
	a := &Arena{
		stride: int(stride),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Stride returns the payload size in bytes.
func (a *Arena) Stride() uint16 {
	return uint16(a.stride) //nolint:gosec // always set from a uint16
}

// Len returns the number of payloads stored.
func (a *Arena) Len() int {
	if a.stride == 0 {
		return 0
	}
	return len(a.buf) / a.stride
}

// Append copies payload into the arena and returns its handle.
func (a *Arena) Append(payload []byte) (Handle, error) {
	if len(payload) != a.stride {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrStrideMismatch, len(payload), a.stride)
	}

	offset := len(a.buf)
	h, err := conv.IntToUint32(offset)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}

	if offset+a.stride > cap(a.buf) {
		if err := a.grow(offset + a.stride); err != nil {
			return 0, err
		}
	}

	a.buf = append(a.buf, payload...)
	a.stats.BytesUsed = uint64(len(a.buf))
	a.stats.TotalAppends++
	return Handle(h), nil
}

func (a *Arena) grow(need int) error {
	newCap := max(2*cap(a.buf), need, a.stride*MinGrowItems)
	delta := int64(newCap - cap(a.buf))

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(delta); err != nil {
			return fmt.Errorf("%w: %w", ErrAllocationFailed, err)
		}
	}

	grown := make([]byte, len(a.buf), newCap)
	copy(grown, a.buf)
	a.buf = grown
	a.reserved += delta
	a.stats.BytesReserved = uint64(a.reserved) //nolint:gosec // never negative
	a.stats.Grows++
	return nil
}

// Get returns the payload for h, or nil if h is out of range.
// The returned slice aliases arena memory.
func (a *Arena) Get(h Handle) []byte {
	off := h.Offset()
	if a.stride == 0 || off+a.stride > len(a.buf) {
		return nil
	}
	return a.buf[off : off+a.stride : off+a.stride]
}

// Bytes returns the raw payload buffer. It aliases arena memory.
func (a *Arena) Bytes() []byte {
	return a.buf
}

// Clone returns a copy of the raw payload buffer.
func (a *Arena) Clone() []byte {
	out := make([]byte, len(a.buf))
	copy(out, a.buf)
	return out
}

// Reset drops all payloads and switches to a new stride.
// Reserved capacity is kept for reuse.
func (a *Arena) Reset(stride uint16) {
	a.buf = a.buf[:0]
	a.stride = int(stride)
	a.stats.BytesUsed = 0
}

// Free drops all payloads and returns reserved memory to the acquirer.
// It is safe to call more than once.
func (a *Arena) Free() {
	if a.acquirer != nil && a.reserved > 0 {
		a.acquirer.ReleaseMemory(a.reserved)
	}
	a.buf = nil
	a.reserved = 0
	a.stats.BytesReserved = 0
	a.stats.BytesUsed = 0
}

// Stats returns a copy of the arena statistics.
func (a *Arena) Stats() Stats {
	return a.stats
}
