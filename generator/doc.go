// Package generator provides generic item generators.
//
//   - SimpleGrid: points on a square grid around a context
//   - ActorsOfClass: world actors of a class near a context
//   - ContextPoints: the locations of a context itself
//
// Generators resolve contexts through the instance, so the querier and any
// registered context can serve as the center.
package generator
