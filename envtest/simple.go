package envtest

import (
	"fmt"

	"github.com/hupe1980/envquery/query"
)

// Random scores items with values drawn from the instance random source.
type Random struct {
	query.TestBase
}

// NewRandom returns a score-only Random test.
func NewRandom() *Random {
	return &Random{TestBase: query.TestBase{Name: "Random", TestPurpose: query.ScoreOnly}}
}

// RunTest implements query.Test.
func (t *Random) RunTest(qi *query.Instance) {
	rng := qi.Rand()
	lo := t.FilterMin.Resolve(qi)
	hi := t.FilterMax.Resolve(qi)

	for it := qi.Iterate(t); it.Next(); {
		it.SetScore(t.Filter, rng.Float32(), lo, hi)
	}
}

// Constant forces every item to pass with the same value.
type Constant struct {
	query.TestBase
	Value query.FloatValue
}

// NewConstant returns a score-only Constant test.
func NewConstant(v query.FloatValue) *Constant {
	t := &Constant{
		TestBase: query.TestBase{
			Name:        fmt.Sprintf("Constant %v", v.Value),
			TestPurpose: query.ScoreOnly,
			Equation:    query.Constant,
		},
		Value: v,
	}
	// Weight carries the value; the equation maps every item to 1.
	t.SetWeight(v)
	return t
}

// RunTest implements query.Test.
func (t *Constant) RunTest(qi *query.Instance) {
	v := t.Value.Resolve(qi)
	for it := qi.Iterate(t); it.Next(); {
		it.ForceItemState(true, v)
	}
}
