package envtest

import (
	"fmt"
	"math"

	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

// LineMode selects how a Line turns into a direction.
type LineMode uint8

const (
	// LineRotation uses the facing of From.
	LineRotation LineMode = iota
	// LineSegment uses the normalized direction from From to To.
	LineSegment
)

// Line describes one side of a Dot test. From and To may be
// query.ContextItem to refer to the item under test.
type Line struct {
	Mode LineMode
	From query.ContextKey
	To   query.ContextKey
}

func (l Line) usesItem() bool {
	return l.From == query.ContextItem || (l.Mode == LineSegment && l.To == query.ContextItem)
}

// Dot scores items by the dot product of two directions.
type Dot struct {
	query.TestBase
	LineA    Line
	LineB    Line
	Absolute bool
}

// NewDot returns a score-only Dot test.
func NewDot(a, b Line) *Dot {
	return &Dot{
		TestBase: query.TestBase{
			Name:        fmt.Sprintf("Dot %s/%s", a.From, b.From),
			TestPurpose: query.ScoreOnly,
			Filter:      query.FilterRange,
			FilterMin:   query.Float(-1),
			FilterMax:   query.Float(1),
		},
		LineA: a,
		LineB: b,
	}
}

// lineSource caches the context side of a Line.
type lineSource struct {
	line      Line
	fromLocs  []model.Vector
	fromRots  []model.Rotator
	toLocs    []model.Vector
	fixedDirs []model.Vector
}

func (t *Dot) prepare(qi *query.Instance, l Line) (*lineSource, bool) {
	src := &lineSource{line: l}
	var ok bool

	switch l.Mode {
	case LineRotation:
		if l.From == query.ContextItem {
			return src, true
		}
		if src.fromRots, ok = qi.PrepareRotations(l.From); !ok {
			return nil, false
		}
		for _, r := range src.fromRots {
			src.fixedDirs = append(src.fixedDirs, r.Vector())
		}
	default:
		if l.From != query.ContextItem {
			if src.fromLocs, ok = qi.PrepareLocations(l.From); !ok {
				return nil, false
			}
		}
		if l.To != query.ContextItem {
			if src.toLocs, ok = qi.PrepareLocations(l.To); !ok {
				return nil, false
			}
		}
		if !l.usesItem() {
			src.fixedDirs = segments(src.fromLocs, src.toLocs)
		}
	}
	return src, true
}

func (s *lineSource) directions(qi *query.Instance, item int) ([]model.Vector, bool) {
	if !s.line.usesItem() {
		return s.fixedDirs, len(s.fixedDirs) > 0
	}

	if s.line.Mode == LineRotation {
		rot, ok := qi.ItemRotation(item)
		if !ok {
			return nil, false
		}
		return []model.Vector{rot.Vector()}, true
	}

	loc, ok := qi.ItemLocation(item)
	if !ok {
		return nil, false
	}
	itemLoc := []model.Vector{loc}
	from, to := s.fromLocs, s.toLocs
	if s.line.From == query.ContextItem {
		from = itemLoc
	}
	if s.line.To == query.ContextItem {
		to = itemLoc
	}
	dirs := segments(from, to)
	return dirs, len(dirs) > 0
}

func segments(from, to []model.Vector) []model.Vector {
	out := make([]model.Vector, 0, len(from)*len(to))
	for _, f := range from {
		for _, t := range to {
			out = append(out, t.Sub(f).Normalize())
		}
	}
	return out
}

// RunTest implements query.Test.
func (t *Dot) RunTest(qi *query.Instance) {
	a, okA := t.prepare(qi, t.LineA)
	b, okB := t.prepare(qi, t.LineB)
	if !okA || !okB {
		qi.SkipCurrentTest("dot line context has no data")
		return
	}
	lo := t.FilterMin.Resolve(qi)
	hi := t.FilterMax.Resolve(qi)

	for it := qi.Iterate(t); it.Next(); {
		dirsA, okA := a.directions(qi, it.Index())
		dirsB, okB := b.directions(qi, it.Index())
		if !okA || !okB {
			it.SkipItem()
			continue
		}
		for _, da := range dirsA {
			for _, db := range dirsB {
				v := da.Dot(db)
				if t.Absolute {
					v = float32(math.Abs(float64(v)))
				}
				it.SetScore(t.Filter, v, lo, hi)
			}
		}
	}
}
