package debug

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

// DefaultHistoryLimit is the number of snapshots kept per owner.
const DefaultHistoryLimit = 10

// ErrNoDebugData is returned when an instance ran without debug capture.
var ErrNoDebugData = errors.New("debug: instance has no debug data")

type options struct {
	compression  CompressionType
	historyLimit int
	clock        func() time.Time
	logger       *slog.Logger
}

// Option configures a Debugger.
type Option func(*options)

// WithCompression sets the payload compression.
func WithCompression(c CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithHistoryLimit sets the number of snapshots kept per owner.
// Values <= 0 keep DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

// WithClock sets the time source for snapshot timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Debugger keeps the most recent finished queries per owner.
//
// Thread-safety: all methods are safe for concurrent use.
type Debugger struct {
	opts options

	mu      sync.RWMutex
	byOwner map[model.ActorID][]*Snapshot
}

// New creates a Debugger.
func New(optFns ...Option) *Debugger {
	opts := options{
		compression:  CompressionLZ4,
		historyLimit: DefaultHistoryLimit,
		clock:        time.Now,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Debugger{
		opts:    opts,
		byOwner: make(map[model.ActorID][]*Snapshot),
	}
}

// Store records a finished instance. The instance must have run with
// StoreDebugInfo enabled.
func (d *Debugger) Store(qi *query.Instance) (*Snapshot, error) {
	data := qi.DebugData()
	if data == nil {
		return nil, ErrNoDebugData
	}

	captured := data.Steps
	if data.Final != nil {
		captured = append(slices.Clip(captured), *data.Final)
	}

	snap := &Snapshot{
		ID:             uuid.New(),
		QueryID:        qi.ID(),
		QueryName:      qi.Name(),
		Owner:          qi.Owner(),
		Timestamp:      d.opts.clock(),
		Status:         qi.Status(),
		RunMode:        qi.RunMode(),
		OptionIndex:    qi.OptionIndex(),
		PerformedTests: slices.Clone(data.PerformedTestNames),
		Steps:          make([]Step, 0, len(captured)),
		FailedByTest:   failedByTest(data.Steps),
		ExecutionTime:  qi.TotalExecutionTime(),
	}

	var compressed int
	for _, s := range captured {
		step, err := newStep(s, d.opts.compression)
		if err != nil {
			return nil, err
		}
		compressed += step.CompressedSize()
		snap.Steps = append(snap.Steps, step)
	}

	d.mu.Lock()
	history := append(d.byOwner[snap.Owner], snap)
	if over := len(history) - d.opts.historyLimit; over > 0 {
		history = slices.Delete(history, 0, over)
	}
	d.byOwner[snap.Owner] = history
	d.mu.Unlock()

	d.opts.logger.Debug("stored query snapshot",
		"snapshot", snap.ID.String(),
		"query", snap.QueryName,
		"owner", uint64(snap.Owner),
		"steps", len(snap.Steps),
		"compressed_bytes", compressed,
	)
	return snap, nil
}

// QueriesForOwner returns up to limit snapshots of owner, most recent first.
// limit <= 0 returns all kept snapshots.
func (d *Debugger) QueriesForOwner(owner model.ActorID, limit int) []*Snapshot {
	d.mu.RLock()
	history := slices.Clone(d.byOwner[owner])
	d.mu.RUnlock()

	slices.SortStableFunc(history, func(a, b *Snapshot) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history
}

// Find returns the snapshot with id.
func (d *Debugger) Find(id uuid.UUID) (*Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, history := range d.byOwner {
		for _, s := range history {
			if s.ID == id {
				return s, true
			}
		}
	}
	return nil, false
}

// Owners returns the owners with recorded snapshots, sorted.
func (d *Debugger) Owners() []model.ActorID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.ActorID, 0, len(d.byOwner))
	for owner := range d.byOwner {
		out = append(out, owner)
	}
	slices.Sort(out)
	return out
}

// Len returns the total number of snapshots kept.
func (d *Debugger) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, history := range d.byOwner {
		n += len(history)
	}
	return n
}

// Clear drops all snapshots.
func (d *Debugger) Clear() {
	d.mu.Lock()
	clear(d.byOwner)
	d.mu.Unlock()
}
