package envtest

import (
	"fmt"
	"math"

	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

// DistanceMode selects how Distance measures.
type DistanceMode uint8

const (
	// Distance3D is the euclidean distance.
	Distance3D DistanceMode = iota
	// Distance2D ignores Z.
	Distance2D
	// DistanceZ is the signed height difference, item minus context.
	DistanceZ
	// DistanceAbsoluteZ is the absolute height difference.
	DistanceAbsoluteZ
)

// String returns a string representation of the mode.
func (m DistanceMode) String() string {
	switch m {
	case Distance3D:
		return "3D"
	case Distance2D:
		return "2D"
	case DistanceZ:
		return "Z"
	case DistanceAbsoluteZ:
		return "AbsoluteZ"
	default:
		return "Unknown"
	}
}

// Distance filters or scores items by their distance to a context.
// Each context location contributes one value per item, combined by the
// multi-context ops.
type Distance struct {
	query.TestBase
	DistanceTo query.ContextKey
	Mode       DistanceMode
}

// NewDistance returns a Distance test against to with the given purpose.
func NewDistance(to query.ContextKey, purpose query.Purpose) *Distance {
	return &Distance{
		TestBase: query.TestBase{
			Name:        fmt.Sprintf("Distance to %s", to),
			TestPurpose: purpose,
			Filter:      query.FilterMaximum,
			FilterMax:   query.Float(math.MaxFloat32),
		},
		DistanceTo: to,
	}
}

// RunTest implements query.Test.
func (t *Distance) RunTest(qi *query.Instance) {
	targets, ok := qi.PrepareLocations(t.DistanceTo)
	if !ok {
		qi.SkipCurrentTest(fmt.Sprintf("context %s has no locations", t.DistanceTo))
		return
	}
	lo := t.FilterMin.Resolve(qi)
	hi := t.FilterMax.Resolve(qi)

	for it := qi.Iterate(t); it.Next(); {
		loc, ok := qi.ItemLocation(it.Index())
		if !ok {
			it.SkipItem()
			continue
		}
		for _, target := range targets {
			it.SetScore(t.Filter, t.measure(loc, target), lo, hi)
		}
	}
}

func (t *Distance) measure(item, target model.Vector) float32 {
	switch t.Mode {
	case Distance2D:
		return model.Distance2D(item, target)
	case DistanceZ:
		return item.Z - target.Z
	case DistanceAbsoluteZ:
		return float32(math.Abs(float64(item.Z - target.Z)))
	default:
		return model.Distance(item, target)
	}
}
