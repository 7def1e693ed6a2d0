package envquery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/envquery/debug"
	"github.com/hupe1980/envquery/internal/resource"
	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

var (
	errMissingGenerator = errors.New("missing generator")
	errNilTest          = errors.New("nil test")
)

// Request describes one query run.
type Request struct {
	// Template is the registered query name.
	Template string
	Owner    model.ActorID
	RunMode  query.RunMode
	// Params overrides named float params of the template.
	Params map[string]float32
}

// FinishedFunc receives the result of a time-sliced query.
type FinishedFunc func(res *query.Result)

// TickStats reports the work of one Tick.
type TickStats struct {
	Steps    int
	Finished int
	Elapsed  time.Duration
}

type runningQuery struct {
	qi         *query.Instance
	onFinished FinishedFunc
}

// Manager owns query templates, context providers and running queries.
//
// Thread-safety: all methods are safe for concurrent use. Time-sliced
// queries advance only inside Tick.
type Manager struct {
	world     model.World
	opts      options
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
	debugger  *debug.Debugger

	regMu     sync.RWMutex
	templates map[string]*query.Query
	contexts  map[query.ContextKey]query.ContextProvider

	runMu   sync.Mutex
	running []*runningQuery
	cursor  int

	idMu   sync.Mutex
	nextID query.ID
	rng    *rand.Rand
}

// New creates a Manager for world.
func New(world model.World, optFns ...Option) *Manager {
	opts := options{
		maxAllowedTestingTime: DefaultMaxAllowedTestingTime,
		clock:                 time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	if opts.metricsCollector == nil {
		opts.metricsCollector = NoopMetricsCollector{}
	}
	if opts.clock == nil {
		opts.clock = time.Now
	}
	if !opts.hasRandSeed {
		opts.randSeed = opts.clock().UnixNano()
	}

	m := &Manager{
		world:   world,
		opts:    opts,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
		resources: resource.NewController(resource.Config{
			MemoryLimitBytes:  opts.memoryLimit,
			MaxRunningQueries: opts.maxRunningQueries,
			QueryStartsPerSec: opts.queryStartsPerSec,
			QueryStartBurst:   opts.queryStartBurst,
		}),
		debugger:  opts.debugger,
		templates: make(map[string]*query.Query),
		contexts:  make(map[query.ContextKey]query.ContextProvider),
		rng:       rand.New(rand.NewSource(opts.randSeed)), //nolint:gosec // gameplay randomness
	}
	if m.opts.storeDebugInfo && m.debugger == nil {
		m.debugger = debug.New(debug.WithLogger(m.logger.Logger), debug.WithClock(opts.clock))
	}
	return m
}

// RegisterTemplate validates q and makes it available by name.
// Registering a name again replaces the template.
func (m *Manager) RegisterTemplate(q *query.Query) error {
	if q == nil || q.Name == "" {
		return fmt.Errorf("%w: template needs a name", ErrInvalidRequest)
	}
	if len(q.Options) == 0 {
		return &ErrTemplate{Name: q.Name, Option: -1, cause: ErrNoOptions}
	}
	for i, opt := range q.Options {
		if opt.Generator == nil {
			return &ErrTemplate{Name: q.Name, Option: i, cause: errMissingGenerator}
		}
		if slices.Contains(opt.Tests, nil) {
			return &ErrTemplate{Name: q.Name, Option: i, cause: errNilTest}
		}
	}

	m.regMu.Lock()
	m.templates[q.Name] = q
	m.regMu.Unlock()
	return nil
}

// Template returns a registered template.
func (m *Manager) Template(name string) (*query.Query, bool) {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	q, ok := m.templates[name]
	return q, ok
}

// Templates returns the registered template names, sorted.
func (m *Manager) Templates() []string {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RegisterContext makes a context provider available to all queries.
func (m *Manager) RegisterContext(key query.ContextKey, p query.ContextProvider) {
	m.regMu.Lock()
	m.contexts[key] = p
	m.regMu.Unlock()
}

// ContextProvider implements query.ContextSource.
func (m *Manager) ContextProvider(key query.ContextKey) (query.ContextProvider, bool) {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	p, ok := m.contexts[key]
	return p, ok
}

// Debugger returns the debugger, or nil when debug capture is off.
func (m *Manager) Debugger() *debug.Debugger { return m.debugger }

// MemoryUsage returns the item and context memory held by live instances.
func (m *Manager) MemoryUsage() int64 { return m.resources.MemoryUsage() }

// NumRunning returns the number of time-sliced queries not yet finished.
func (m *Manager) NumRunning() int {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return len(m.running)
}

func (m *Manager) newInstance(req Request) (*query.Instance, error) {
	if req.Template == "" {
		return nil, fmt.Errorf("%w: empty template name", ErrInvalidRequest)
	}
	q, ok := m.Template(req.Template)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, req.Template)
	}

	m.idMu.Lock()
	m.nextID++
	id := m.nextID
	seed := m.rng.Int63()
	m.idMu.Unlock()

	return query.NewInstance(query.Config{
		ID:             id,
		Query:          q,
		Owner:          req.Owner,
		World:          m.world,
		RunMode:        req.RunMode,
		Contexts:       m,
		Params:         req.Params,
		Logger:         m.logger.Logger,
		Memory:         m.resources,
		StoreDebugInfo: m.opts.storeDebugInfo,
		Clock:          m.opts.clock,
		Rand:           rand.New(rand.NewSource(seed)), //nolint:gosec // gameplay randomness
	}), nil
}

// RunQuery starts a time-sliced query. It advances during Tick and
// onFinished is called once it finished or was aborted.
func (m *Manager) RunQuery(ctx context.Context, req Request, onFinished FinishedFunc) (query.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if !m.resources.AllowStart(m.opts.clock()) {
		return 0, m.reject(ctx, req, "start rate exceeded")
	}
	if !m.resources.TryAcquireSlot() {
		return 0, m.reject(ctx, req, "running query limit reached")
	}

	qi, err := m.newInstance(req)
	if err != nil {
		m.resources.ReleaseSlot()
		return 0, err
	}

	m.runMu.Lock()
	m.running = append(m.running, &runningQuery{qi: qi, onFinished: onFinished})
	m.runMu.Unlock()

	return qi.ID(), nil
}

func (m *Manager) reject(ctx context.Context, req Request, reason string) error {
	m.metrics.RecordRejected(reason)
	m.logger.LogRejected(ctx, req.Template, reason)
	return fmt.Errorf("%w: %s", ErrBackpressure, reason)
}

// Tick advances running queries round-robin until the testing time budget
// is spent. At least one step runs when any query is running.
func (m *Manager) Tick(ctx context.Context) TickStats {
	start := m.opts.clock()
	var (
		stats    TickStats
		finished []*runningQuery
	)

	m.runMu.Lock()
	for len(m.running) > 0 && ctx.Err() == nil {
		elapsed := m.opts.clock().Sub(start)
		timeLeft := m.opts.maxAllowedTestingTime - elapsed
		if stats.Steps > 0 && timeLeft <= 0 {
			break
		}

		if m.cursor >= len(m.running) {
			m.cursor = 0
		}
		rq := m.running[m.cursor]

		out := rq.qi.ExecuteOneStep(max(timeLeft, 0))
		stats.Steps++
		m.metrics.RecordStep(out.Elapsed, out.ItemsProcessed)

		if rq.qi.IsFinished() {
			m.running = slices.Delete(m.running, m.cursor, m.cursor+1)
			finished = append(finished, rq)
			continue
		}
		m.cursor++
	}
	m.runMu.Unlock()

	for _, rq := range finished {
		m.finish(ctx, rq)
	}

	stats.Finished = len(finished)
	stats.Elapsed = m.opts.clock().Sub(start)
	return stats
}

// finish records and releases a query that left the running list.
func (m *Manager) finish(ctx context.Context, rq *runningQuery) {
	res := m.complete(ctx, rq.qi)
	m.resources.ReleaseSlot()
	if rq.onFinished != nil {
		rq.onFinished(res)
	}
}

// complete records metrics and debug data, then releases the instance.
func (m *Manager) complete(ctx context.Context, qi *query.Instance) *query.Result {
	res := qi.Result()
	m.metrics.RecordQuery(res.QueryName, res.Status, res.ExecutionTime, res.Steps)
	m.logger.LogQueryFinished(ctx, res, m.opts.slowQueryThreshold)

	if m.debugger != nil && qi.DebugData() != nil {
		if _, err := m.debugger.Store(qi); err != nil {
			m.logger.WarnContext(ctx, "debug snapshot failed", "query", res.QueryName, "error", err)
		}
	}

	qi.Release()
	return res
}

// AbortQuery stops a running query. Its callback receives an Aborted result.
func (m *Manager) AbortQuery(ctx context.Context, id query.ID) error {
	m.runMu.Lock()
	idx := slices.IndexFunc(m.running, func(rq *runningQuery) bool { return rq.qi.ID() == id })
	if idx < 0 {
		m.runMu.Unlock()
		return fmt.Errorf("%w: %d", ErrQueryNotFound, id)
	}
	rq := m.running[idx]
	m.running = slices.Delete(m.running, idx, idx+1)
	if m.cursor > idx {
		m.cursor--
	}
	m.runMu.Unlock()

	rq.qi.Abort()
	m.logger.LogAborted(ctx, id, rq.qi.Name())
	m.finish(ctx, rq)
	return nil
}

// AbortQueriesByOwner stops all running queries of owner and returns how
// many were aborted.
func (m *Manager) AbortQueriesByOwner(ctx context.Context, owner model.ActorID) int {
	m.runMu.Lock()
	var ids []query.ID
	for _, rq := range m.running {
		if rq.qi.Owner() == owner {
			ids = append(ids, rq.qi.ID())
		}
	}
	m.runMu.Unlock()

	n := 0
	for _, id := range ids {
		if m.AbortQuery(ctx, id) == nil {
			n++
		}
	}
	return n
}

// RunInstantQuery runs a query to completion on the calling goroutine.
// It ignores the running-query limits.
func (m *Manager) RunInstantQuery(ctx context.Context, req Request) (*query.Result, error) {
	qi, err := m.newInstance(req)
	if err != nil {
		return nil, err
	}

	for !qi.IsFinished() {
		if err := ctx.Err(); err != nil {
			qi.Abort()
			m.complete(ctx, qi)
			return nil, err
		}
		qi.ExecuteOneStep(query.Unlimited)
	}

	return m.complete(ctx, qi), nil
}

// RunInstantBatch runs independent queries in parallel. Results are in
// request order. The first error cancels the remaining queries.
func (m *Manager) RunInstantBatch(ctx context.Context, reqs []Request) ([]*query.Result, error) {
	results := make([]*query.Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if m.opts.batchParallelism > 0 {
		g.SetLimit(m.opts.batchParallelism)
	}

	for i, req := range reqs {
		g.Go(func() error {
			res, err := m.RunInstantQuery(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d (%s): %w", i, req.Template, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close aborts all running queries.
func (m *Manager) Close(ctx context.Context) {
	m.runMu.Lock()
	running := m.running
	m.running = nil
	m.cursor = 0
	m.runMu.Unlock()

	for _, rq := range running {
		rq.qi.Abort()
		m.finish(ctx, rq)
	}
}
