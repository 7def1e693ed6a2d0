// Package envquery provides an environment query system for Go game and
// simulation servers.
//
// An environment query asks "which point or actor around me is best for X":
// a generator proposes candidate items, tests filter and score them, and a
// run mode picks the result. Queries are time-sliced: each Tick advances
// running queries until a frame budget is spent, and a query resumes exactly
// where it stopped.
//
// # Quick Start
//
//	world := model.NewSimpleWorld(actors...)
//	m := envquery.New(world,
//	    envquery.WithMaxAllowedTestingTime(2*time.Millisecond),
//	    envquery.WithMaxRunningQueries(256),
//	)
//
//	_ = m.RegisterTemplate(&query.Query{
//	    Name: "FindCover",
//	    Options: []query.Option{{
//	        Generator: &generator.SimpleGrid{Radius: query.Float(1000), Spacing: query.Float(100)},
//	        Tests: []query.Test{
//	            envtest.NewDistance(query.ContextQuerier, query.ScoreOnly),
//	        },
//	    }},
//	})
//
//	id, err := m.RunQuery(ctx, envquery.Request{Template: "FindCover", Owner: bot}, func(res *query.Result) {
//	    if res.IsSuccessful() {
//	        loc, _ := res.ItemLocation(0)
//	        moveTo(loc)
//	    }
//	})
//
//	// once per frame
//	m.Tick(ctx)
//
// # Instant Queries
//
// RunInstantQuery runs a query to completion on the calling goroutine;
// RunInstantBatch runs independent queries in parallel:
//
//	res, err := m.RunInstantQuery(ctx, envquery.Request{Template: "FindCover", Owner: bot})
//
// # Backpressure
//
// RunQuery returns ErrBackpressure when the running-query limit or the
// start rate is exhausted. Item and context memory is accounted against
// WithMemoryLimit; a query that hits the limit keeps the items generated so
// far.
//
// # Debugging
//
// WithStoreDebugInfo captures a snapshot after every stage of every query
// and records finished queries in a debug.Debugger, per owner.
package envquery
