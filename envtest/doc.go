// Package envtest provides generic query tests.
//
//   - Distance: distance from the item to a context, 3D, 2D or along Z
//   - Dot: dot product of two directions built from contexts or the item
//   - Random: a random score per item
//   - Constant: the same score for every item
//
// All tests embed query.TestBase, so purpose, filter thresholds, scoring
// equation, weight and clamping are configured the same way:
//
//	d := envtest.NewDistance(query.ContextQuerier, query.FilterAndScore)
//	d.FilterMax = query.FloatParam("MaxDistance", 1500)
//	d.Equation = query.InverseLinear
package envtest
