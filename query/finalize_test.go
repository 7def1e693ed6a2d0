package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize_NormalizeEqualScores(t *testing.T) {
	tests := []struct {
		name  string
		score float32
		want  float32
	}{
		{"all zero", 0, 0},
		{"all positive", 3, 1},
		{"all negative", -2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := []float32{tt.score, tt.score, tt.score}
			q := &Query{Options: []Option{{Generator: &pointsGen{points: linePoints(3), scores: scores}}}}
			qi := NewInstance(Config{Query: q, RunMode: AllMatching})
			runToEnd(qi, Unlimited)

			require.Equal(t, Success, qi.Status())
			for _, item := range qi.Result().Items {
				assert.Equal(t, tt.want, item.Score)
			}
		})
	}
}

func TestFinalize_NegativeScoresNormalizeToUnitRange(t *testing.T) {
	q := &Query{Options: []Option{{Generator: &pointsGen{points: linePoints(3), scores: []float32{-4, -2, 0}}}}}
	qi := NewInstance(Config{Query: q, RunMode: AllMatching})
	runToEnd(qi, Unlimited)

	res := qi.Result()
	assert.Equal(t, []float32{1, 0.5, 0}, []float32{res.ItemScore(0), res.ItemScore(1), res.ItemScore(2)})
}

func TestFinalize_SortIsStableOnTies(t *testing.T) {
	scores := []float32{1, 5, 1, 5, 1}
	q := &Query{Options: []Option{{Generator: &pointsGen{points: linePoints(5), scores: scores}}}}
	qi := NewInstance(Config{Query: q, RunMode: AllMatching})
	runToEnd(qi, Unlimited)

	var order []float32
	for _, loc := range qi.Result().Locations() {
		order = append(order, loc.X)
	}
	assert.Equal(t, []float32{1, 3, 0, 2, 4}, order)
}

func TestFinalize_SortPutsInvalidItemsLast(t *testing.T) {
	test := &funcTest{TestBase: TestBase{TestPurpose: FilterOnly}}
	q := &Query{Options: []Option{{Generator: &pointsGen{points: linePoints(3), scores: []float32{9, 1, 2}}, Tests: []Test{test}}}}
	qi := NewInstance(Config{Query: q, RunMode: AllMatching})
	qi.ExecuteOneStep(Unlimited)
	qi.HandleFailedTestResult(0)

	qi.sortScores()

	assert.False(t, qi.Item(2).IsValid())
	assert.Equal(t, float32(2), qi.Item(0).Score)
	assert.Equal(t, 2, qi.ItemDetails(0).ItemIndex)
	assert.Equal(t, 0, qi.ItemDetails(2).ItemIndex)
}

func TestFinalize_SingleBestPicksHighestScore(t *testing.T) {
	q := &Query{Options: []Option{{Generator: &pointsGen{points: linePoints(4), scores: []float32{2, 8, 8, 1}}}}}
	qi := NewInstance(Config{Query: q, RunMode: SingleBestItem})
	runToEnd(qi, Unlimited)

	res := qi.Result()
	require.True(t, res.IsSuccessful())
	require.Equal(t, 1, res.NumItems())
	loc, ok := res.ItemLocation(0)
	require.True(t, ok)
	assert.Equal(t, float32(1), loc.X)
	assert.Equal(t, float32(8), res.ItemScore(0))
}

func TestTestBase_NormalizeItemScores(t *testing.T) {
	tests := []struct {
		name string
		base TestBase
		want []float32
	}{
		{
			name: "linear",
			base: TestBase{TestPurpose: ScoreOnly},
			want: []float32{0, 0.5, 1},
		},
		{
			name: "inverse linear weighted",
			base: TestBase{TestPurpose: ScoreOnly, Equation: InverseLinear, ScoringFactor: Float(2)},
			want: []float32{2, 1, 0},
		},
		{
			name: "square",
			base: TestBase{TestPurpose: ScoreOnly, Equation: Square},
			want: []float32{0, 0.25, 1},
		},
		{
			name: "constant",
			base: TestBase{TestPurpose: ScoreOnly, Equation: Constant},
			want: []float32{1, 1, 1},
		},
		{
			name: "specified clamp",
			base: TestBase{TestPurpose: ScoreOnly, ClampMaxType: ClampSpecified, ScoreClampMax: Float(10)},
			want: []float32{0, 0.4, 0.8},
		},
		{
			name: "param clamp",
			base: TestBase{TestPurpose: ScoreOnly, ClampMaxType: ClampSpecified, ScoreClampMax: FloatParam("Max", 100)},
			want: []float32{0, 1, 1},
		},
		{
			name: "filter only does not score",
			base: TestBase{TestPurpose: FilterOnly},
			want: []float32{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test := &funcTest{TestBase: tt.base}
			test.fn = func(_ *Instance, it *Iterator) {
				it.SetScore(FilterRange, float32(it.Index())*4, 0, 100)
			}
			q := &Query{Options: []Option{{Generator: &pointsGen{points: linePoints(3)}, Tests: []Test{test, &idleTest{}}}}}
			qi := NewInstance(Config{Query: q, RunMode: AllMatching, Params: map[string]float32{"Max": 4}})
			qi.ExecuteOneStep(Unlimited)
			qi.ExecuteOneStep(Unlimited)

			require.Equal(t, 1, qi.CurrentTest())
			for i, want := range tt.want {
				assert.InDelta(t, want, qi.Item(i).Score, 1e-6, "item %d", i)
				assert.InDelta(t, want, qi.ItemDetails(i).TestWeightedScores[0], 1e-6)
			}
		})
	}
}

func TestTestBase_SkippedValuesDoNotScore(t *testing.T) {
	test := &funcTest{TestBase: TestBase{TestPurpose: ScoreOnly}}
	test.fn = func(_ *Instance, it *Iterator) {
		if it.Index() == 1 {
			it.SkipItem()
			return
		}
		it.SetScore(FilterRange, float32(it.Index()), 0, 0)
	}
	q := &Query{Options: []Option{{Generator: &pointsGen{points: linePoints(3)}, Tests: []Test{test, &idleTest{}}}}}
	qi := NewInstance(Config{Query: q, RunMode: AllMatching})
	qi.ExecuteOneStep(Unlimited)
	qi.ExecuteOneStep(Unlimited)

	assert.Equal(t, float32(0), qi.Item(0).Score)
	assert.Equal(t, float32(0), qi.Item(1).Score)
	assert.Equal(t, float32(1), qi.Item(2).Score)
}
