package query

import (
	"time"

	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/model"
)

// pointsGen generates one Point item per location with optional preset scores.
type pointsGen struct {
	points []model.Vector
	scores []float32
	calls  int
}

func (g *pointsGen) ItemType() itemtype.Descriptor { return itemtype.Point }

func (g *pointsGen) GenerateItems(qi *Instance) {
	g.calls++
	for i, p := range g.points {
		var s float32
		if i < len(g.scores) {
			s = g.scores[i]
		}
		_ = qi.AddScoredItem(itemtype.Point.Encode(p), s)
	}
}

func (g *pointsGen) Describe() string { return "points" }

func linePoints(n int) []model.Vector {
	out := make([]model.Vector, n)
	for i := range out {
		out[i] = model.Vector{X: float32(i)}
	}
	return out
}

// funcTest runs fn for every visited item.
type funcTest struct {
	TestBase
	fn      func(qi *Instance, it *Iterator)
	calls   int
	visited []int
}

func (t *funcTest) RunTest(qi *Instance) {
	t.calls++
	for it := qi.Iterate(t); it.Next(); {
		t.visited = append(t.visited, it.Index())
		t.fn(qi, &it)
	}
}

// idleTest never touches any item.
type idleTest struct {
	TestBase
	calls int
}

func (t *idleTest) RunTest(*Instance) { t.calls++ }

// distanceTest scores the X distance to a target.
func distanceTest(target float32, purpose Purpose) *funcTest {
	t := &funcTest{TestBase: TestBase{Name: "distance", TestPurpose: purpose, FilterMax: Float(1000)}}
	t.fn = func(qi *Instance, it *Iterator) {
		loc, ok := qi.ItemLocation(it.Index())
		if !ok {
			it.SkipItem()
			return
		}
		d := loc.X - target
		if d < 0 {
			d = -d
		}
		it.SetScore(FilterMaximum, d, 0, t.FilterMax.Resolve(qi))
	}
	return t
}

// stepClock advances by step on every reading.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{now: time.Unix(1_700_000_000, 0), step: step}
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

type countingMemory struct {
	limit int64
	used  int64
}

func (m *countingMemory) AcquireMemory(amount int64) error {
	if m.limit > 0 && m.used+amount > m.limit {
		return errMemory
	}
	m.used += amount
	return nil
}

func (m *countingMemory) ReleaseMemory(amount int64) { m.used -= amount }

type memoryError struct{}

func (memoryError) Error() string { return "memory limit" }

var errMemory = memoryError{}

func runToEnd(qi *Instance, budget time.Duration) int {
	steps := 0
	for !qi.IsFinished() && steps < 10_000 {
		qi.ExecuteOneStep(budget)
		steps++
	}
	return steps
}
