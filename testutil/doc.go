// Package testutil provides testing utilities for envquery.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded RNG for reproducible worlds and item sets, plus
// fixture generators and tests.
//
// # Random Fixtures
//
//	rng := testutil.NewRNG(seed)
//	points := rng.Points(100, 50)
//	world, ids := rng.World(10, "Pickup", 50)
//
// # Fixture Queries
//
//	q := testutil.SingleOption("near",
//	    &testutil.PointGenerator{Points: testutil.Line(10)},
//	    testutil.Filter("x<5", func(v model.Vector) bool { return v.X < 5 }),
//	)
package testutil
