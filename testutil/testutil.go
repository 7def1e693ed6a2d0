package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // test fixtures
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed)) //nolint:gosec // test fixtures
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Points generates num locations with X and Y in [-extent, extent) and Z = 0.
func (r *RNG) Points(num int, extent float32) []model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Vector, num)
	for i := range out {
		out[i] = model.Vector{
			X: (r.rand.Float32()*2 - 1) * extent,
			Y: (r.rand.Float32()*2 - 1) * extent,
		}
	}
	return out
}

// Scores generates num scores in [0, 10).
func (r *RNG) Scores(num int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, num)
	for i := range out {
		out[i] = r.rand.Float32() * 10
	}
	return out
}

// World spawns num actors of class at random points and returns the world
// and their IDs. IDs start at 1.
func (r *RNG) World(num int, class string, extent float32) (*model.SimpleWorld, []model.ActorID) {
	w := model.NewSimpleWorld()
	ids := make([]model.ActorID, num)
	for i, p := range r.Points(num, extent) {
		id := model.ActorID(i + 1) //nolint:gosec // test fixtures
		w.Spawn(&model.BasicActor{ActorID: id, Kind: class, Position: p})
		ids[i] = id
	}
	return w, ids
}

// PointGenerator yields a fixed set of Point items with optional preset scores.
type PointGenerator struct {
	Points []model.Vector
	Scores []float32
}

// ItemType implements query.Generator.
func (g *PointGenerator) ItemType() itemtype.Descriptor { return itemtype.Point }

// GenerateItems implements query.Generator.
func (g *PointGenerator) GenerateItems(qi *query.Instance) {
	for i, p := range g.Points {
		var score float32
		if i < len(g.Scores) {
			score = g.Scores[i]
		}
		if err := qi.AddScoredItem(itemtype.Point.Encode(p), score); err != nil {
			return
		}
	}
}

// Describe implements query.Generator.
func (g *PointGenerator) Describe() string {
	return fmt.Sprintf("Fixed points (%d)", len(g.Points))
}

// Line returns n points along the X axis at 0, 1, ..., n-1.
func Line(n int) []model.Vector {
	out := make([]model.Vector, n)
	for i := range out {
		out[i] = model.Vector{X: float32(i)}
	}
	return out
}

// PredicateTest filters items by a predicate on their location.
type PredicateTest struct {
	query.TestBase
	Keep func(loc model.Vector) bool
}

// RunTest implements query.Test.
func (t *PredicateTest) RunTest(qi *query.Instance) {
	for it := qi.Iterate(t); it.Next(); {
		loc, ok := qi.ItemLocation(it.Index())
		if !ok {
			it.SkipItem()
			continue
		}
		it.SetBoolScore(t.Keep(loc), true)
	}
}

// Filter returns a filter-only PredicateTest.
func Filter(name string, keep func(loc model.Vector) bool) *PredicateTest {
	return &PredicateTest{
		TestBase: query.TestBase{Name: name, TestPurpose: query.FilterOnly},
		Keep:     keep,
	}
}

// SingleOption wraps a generator and tests into a one-option query.
func SingleOption(name string, gen query.Generator, tests ...query.Test) *query.Query {
	return &query.Query{
		Name:    name,
		Options: []query.Option{{Generator: gen, Tests: tests}},
	}
}
