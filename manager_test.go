package envquery

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/envquery/debug"
	"github.com/hupe1980/envquery/envtest"
	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
	"github.com/hupe1980/envquery/testutil"
)

func testWorld() *model.SimpleWorld {
	return model.NewSimpleWorld(
		&model.BasicActor{ActorID: 1, Kind: "Guard"},
		&model.BasicActor{ActorID: 2, Kind: "Guard", Position: model.Vector{X: 100}},
	)
}

// atLeast keeps items with X >= x.
func atLeast(x float32) query.Test {
	return testutil.Filter("at least", func(loc model.Vector) bool { return loc.X >= x })
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithMaxAllowedTestingTime(time.Hour), WithRandSeed(1)}, opts...)
	m := New(testWorld(), opts...)
	require.NoError(t, m.RegisterTemplate(testutil.SingleOption("upper", &testutil.PointGenerator{Points: testutil.Line(10)}, atLeast(5))))
	require.NoError(t, m.RegisterTemplate(testutil.SingleOption("lower",
		&testutil.PointGenerator{Points: testutil.Line(10)},
		testutil.Filter("below", func(loc model.Vector) bool { return loc.X < 2 }),
	)))
	return m
}

func TestManager_RegisterTemplate(t *testing.T) {
	m := New(testWorld())

	err := m.RegisterTemplate(nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	err = m.RegisterTemplate(&query.Query{Name: "empty"})
	require.ErrorIs(t, err, ErrNoOptions)
	var tmplErr *ErrTemplate
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, "empty", tmplErr.Name)
	assert.Equal(t, -1, tmplErr.Option)

	err = m.RegisterTemplate(&query.Query{Name: "nogen", Options: []query.Option{
		{Generator: &testutil.PointGenerator{}},
		{Tests: []query.Test{atLeast(0)}},
	}})
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, 1, tmplErr.Option)
	assert.ErrorIs(t, err, errMissingGenerator)

	err = m.RegisterTemplate(&query.Query{Name: "niltest", Options: []query.Option{
		{Generator: &testutil.PointGenerator{}, Tests: []query.Test{nil}},
	}})
	assert.ErrorIs(t, err, errNilTest)

	require.NoError(t, m.RegisterTemplate(testutil.SingleOption("b", &testutil.PointGenerator{})))
	require.NoError(t, m.RegisterTemplate(testutil.SingleOption("a", &testutil.PointGenerator{})))
	assert.Equal(t, []string{"a", "b"}, m.Templates())

	_, ok := m.Template("a")
	assert.True(t, ok)
	_, ok = m.Template("empty")
	assert.False(t, ok)
}

func TestManager_RunQueryTick(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	var got *query.Result
	id, err := m.RunQuery(ctx, Request{Template: "upper", Owner: 1, RunMode: query.AllMatching}, func(res *query.Result) {
		got = res
	})
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, 1, m.NumRunning())

	stats := m.Tick(ctx)
	assert.GreaterOrEqual(t, stats.Steps, 1)
	assert.Equal(t, 1, stats.Finished)
	assert.Equal(t, 0, m.NumRunning())

	require.NotNil(t, got)
	assert.Equal(t, id, got.QueryID)
	assert.Equal(t, "upper", got.QueryName)
	assert.Equal(t, query.Success, got.Status)
	assert.Equal(t, 5, got.NumItems())
	assert.Equal(t, int64(0), m.MemoryUsage())

	// Nothing left to run.
	stats = m.Tick(ctx)
	assert.Zero(t, stats.Steps)
	assert.Zero(t, stats.Finished)
}

func TestManager_TickRunsAtLeastOneStep(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	clock := func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	m := newTestManager(t, WithMaxAllowedTestingTime(0), WithClock(clock))
	ctx := context.Background()

	finished := 0
	for range 2 {
		_, err := m.RunQuery(ctx, Request{Template: "upper", RunMode: query.AllMatching}, func(*query.Result) { finished++ })
		require.NoError(t, err)
	}

	for ticks := 0; m.NumRunning() > 0; ticks++ {
		require.Less(t, ticks, 1000)
		stats := m.Tick(ctx)
		assert.Equal(t, 1, stats.Steps)
	}
	assert.Equal(t, 2, finished)
}

func TestManager_RunQueryErrors(t *testing.T) {
	m := newTestManager(t, WithMaxRunningQueries(1))
	ctx := context.Background()

	_, err := m.RunQuery(ctx, Request{}, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.RunQuery(ctx, Request{Template: "missing"}, nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	// Failed starts give their slot back.
	_, err = m.RunQuery(ctx, Request{Template: "upper"}, nil)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.RunQuery(cancelled, Request{Template: "upper"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_BackpressureSlots(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	m := newTestManager(t, WithMaxRunningQueries(1), WithMetricsCollector(metrics))
	ctx := context.Background()

	_, err := m.RunQuery(ctx, Request{Template: "upper"}, nil)
	require.NoError(t, err)

	_, err = m.RunQuery(ctx, Request{Template: "upper"}, nil)
	require.ErrorIs(t, err, ErrBackpressure)
	assert.Equal(t, int64(1), metrics.GetStats().Rejected)

	m.Tick(ctx)

	_, err = m.RunQuery(ctx, Request{Template: "upper"}, nil)
	assert.NoError(t, err)
}

func TestManager_BackpressureStartRate(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	m := newTestManager(t, WithQueryStartRate(1, 1), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := m.RunQuery(ctx, Request{Template: "upper"}, nil)
	require.NoError(t, err)

	_, err = m.RunQuery(ctx, Request{Template: "upper"}, nil)
	require.ErrorIs(t, err, ErrBackpressure)

	now = now.Add(time.Second)
	_, err = m.RunQuery(ctx, Request{Template: "upper"}, nil)
	assert.NoError(t, err)
}

func TestManager_AbortQuery(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	var got *query.Result
	id, err := m.RunQuery(ctx, Request{Template: "upper", Owner: 1}, func(res *query.Result) { got = res })
	require.NoError(t, err)

	require.NoError(t, m.AbortQuery(ctx, id))
	require.NotNil(t, got)
	assert.Equal(t, query.Aborted, got.Status)
	assert.Zero(t, got.NumItems())
	assert.Equal(t, 0, m.NumRunning())
	assert.Equal(t, int64(0), m.MemoryUsage())

	assert.ErrorIs(t, m.AbortQuery(ctx, id), ErrQueryNotFound)
}

func TestManager_AbortQueriesByOwner(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, owner := range []model.ActorID{1, 2, 1} {
		_, err := m.RunQuery(ctx, Request{Template: "upper", Owner: owner}, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, m.AbortQueriesByOwner(ctx, 1))
	assert.Equal(t, 1, m.NumRunning())
	assert.Equal(t, 0, m.AbortQueriesByOwner(ctx, 1))
}

func TestManager_OwnerLost(t *testing.T) {
	world := testWorld()
	m := New(world, WithMaxAllowedTestingTime(time.Hour))
	require.NoError(t, m.RegisterTemplate(testutil.SingleOption("upper", &testutil.PointGenerator{Points: testutil.Line(10)}, atLeast(5))))
	ctx := context.Background()

	var got *query.Result
	_, err := m.RunQuery(ctx, Request{Template: "upper", Owner: 2}, func(res *query.Result) { got = res })
	require.NoError(t, err)

	world.Destroy(2)
	m.Tick(ctx)

	require.NotNil(t, got)
	assert.Equal(t, query.OwnerLost, got.Status)
}

func TestManager_Close(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	var statuses []query.Status
	for range 3 {
		_, err := m.RunQuery(ctx, Request{Template: "upper"}, func(res *query.Result) {
			statuses = append(statuses, res.Status)
		})
		require.NoError(t, err)
	}

	m.Close(ctx)
	assert.Equal(t, 0, m.NumRunning())
	assert.Equal(t, []query.Status{query.Aborted, query.Aborted, query.Aborted}, statuses)
}

func TestManager_RunInstantQuery(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	res, err := m.RunInstantQuery(ctx, Request{Template: "upper", Owner: 1, RunMode: query.SingleBestItem})
	require.NoError(t, err)
	require.True(t, res.IsSuccessful())
	require.Equal(t, 1, res.NumItems())

	// A trailing filter picks the first passing item.
	loc, ok := res.ItemLocation(0)
	require.True(t, ok)
	assert.Equal(t, model.Vector{X: 5}, loc)

	_, err = m.RunInstantQuery(ctx, Request{Template: "missing"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.RunInstantQuery(cancelled, Request{Template: "upper"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), m.MemoryUsage())
}

func TestManager_RunInstantBatch(t *testing.T) {
	m := newTestManager(t, WithBatchParallelism(2))
	ctx := context.Background()

	results, err := m.RunInstantBatch(ctx, []Request{
		{Template: "upper", RunMode: query.AllMatching},
		{Template: "lower", RunMode: query.AllMatching},
		{Template: "upper", RunMode: query.AllMatching},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 5, results[0].NumItems())
	assert.Equal(t, 2, results[1].NumItems())
	assert.Equal(t, 5, results[2].NumItems())

	_, err = m.RunInstantBatch(ctx, []Request{
		{Template: "upper"},
		{Template: "missing"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Contains(t, err.Error(), "request 1")
}

func TestManager_RegisteredContext(t *testing.T) {
	m := New(testWorld())
	m.RegisterContext("Target", query.ContextProviderFunc(func(_ *query.Instance, d *query.ContextData) {
		d.SetLocations(model.Vector{X: 5})
	}))

	near := envtest.NewDistance("Target", query.FilterOnly)
	near.FilterMax = query.Float(1)
	require.NoError(t, m.RegisterTemplate(testutil.SingleOption("near", &testutil.PointGenerator{Points: testutil.Line(10)}, near)))

	res, err := m.RunInstantQuery(context.Background(), Request{Template: "near", RunMode: query.AllMatching})
	require.NoError(t, err)

	var xs []float32
	for _, loc := range res.Locations() {
		xs = append(xs, loc.X)
	}
	assert.ElementsMatch(t, []float32{4, 5, 6}, xs)
}

func TestManager_Params(t *testing.T) {
	m := New(testWorld())
	near := envtest.NewDistance(query.ContextQuerier, query.FilterOnly)
	near.FilterMax = query.FloatParam("Range", 2)
	require.NoError(t, m.RegisterTemplate(testutil.SingleOption("near", &testutil.PointGenerator{Points: testutil.Line(10)}, near)))
	ctx := context.Background()

	res, err := m.RunInstantQuery(ctx, Request{Template: "near", Owner: 1, RunMode: query.AllMatching})
	require.NoError(t, err)
	assert.Equal(t, 3, res.NumItems())

	res, err = m.RunInstantQuery(ctx, Request{Template: "near", Owner: 1, RunMode: query.AllMatching, Params: map[string]float32{"Range": 6}})
	require.NoError(t, err)
	assert.Equal(t, 7, res.NumItems())
}

func TestManager_DebugInfo(t *testing.T) {
	m := newTestManager(t, WithStoreDebugInfo(true))
	require.NotNil(t, m.Debugger())

	_, err := m.RunInstantQuery(context.Background(), Request{Template: "upper", Owner: 1, RunMode: query.AllMatching})
	require.NoError(t, err)

	assert.Equal(t, 1, m.Debugger().Len())
	history := m.Debugger().QueriesForOwner(1, 0)
	require.Len(t, history, 1)
	assert.Equal(t, "upper", history[0].QueryName)

	assert.Nil(t, newTestManager(t).Debugger())
}

func TestManager_DebuggerWithCaptureOff(t *testing.T) {
	logger, buf := captureLogger(slog.LevelWarn)
	dbg := debug.New()
	m := newTestManager(t, WithLogger(logger), WithDebugger(dbg), WithStoreDebugInfo(false))

	res, err := m.RunInstantQuery(context.Background(), Request{Template: "upper", Owner: 1, RunMode: query.AllMatching})
	require.NoError(t, err)
	require.True(t, res.IsSuccessful())

	assert.Zero(t, dbg.Len())
	assert.NotContains(t, buf.String(), "debug snapshot failed")
}

func TestManager_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	m := newTestManager(t, WithMetricsCollector(metrics))
	ctx := context.Background()

	_, err := m.RunQuery(ctx, Request{Template: "upper", RunMode: query.AllMatching}, nil)
	require.NoError(t, err)
	id, err := m.RunQuery(ctx, Request{Template: "upper", RunMode: query.AllMatching}, nil)
	require.NoError(t, err)
	require.NoError(t, m.AbortQuery(ctx, id))
	m.Tick(ctx)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QuerySucceeded)
	assert.Equal(t, int64(1), stats.QueryAborted)
	assert.GreaterOrEqual(t, stats.StepCount, int64(1))
	assert.Equal(t, int64(10), stats.ItemsProcessed)
}

func TestErrTemplate(t *testing.T) {
	cause := errors.New("boom")
	err := &ErrTemplate{Name: "q", Option: 2, cause: cause}
	assert.Equal(t, `template "q" option 2: boom`, err.Error())
	assert.ErrorIs(t, err, cause)

	err = &ErrTemplate{Name: "q", Option: -1, cause: cause}
	assert.Equal(t, `template "q": boom`, err.Error())
}
