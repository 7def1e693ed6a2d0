package query

// TestBase carries the settings shared by all tests. Embed it and implement
// RunTest to get a complete Test.
type TestBase struct {
	Name        string
	TestPurpose Purpose

	// MultipleContextFilterOp and MultipleContextScoreOp combine the results
	// of a test that checks more than one context value per item.
	MultipleContextFilterOp FilterOp
	MultipleContextScoreOp  ScoreOp

	Filter    FilterType
	FilterMin FloatValue
	FilterMax FloatValue
	BoolMatch bool

	Equation ScoringEquation
	// ScoringFactor weights the normalized score. A zero value means 1;
	// use SetWeight for an explicit zero.
	ScoringFactor FloatValue
	weightSet     bool

	ClampMinType  ClampType
	ScoreClampMin FloatValue
	ClampMaxType  ClampType
	ScoreClampMax FloatValue
}

// Describe implements Test.
func (b *TestBase) Describe() string { return b.Name }

// Purpose implements Test.
func (b *TestBase) Purpose() Purpose { return b.TestPurpose }

// FilterOp implements Test.
func (b *TestBase) FilterOp() FilterOp { return b.MultipleContextFilterOp }

// ScoreOp implements Test.
func (b *TestBase) ScoreOp() ScoreOp { return b.MultipleContextScoreOp }

// CanRunAsFinalCondition implements Test. Only pure filters qualify.
func (b *TestBase) CanRunAsFinalCondition() bool {
	return b.TestPurpose == FilterOnly
}

// SetWeight sets the scoring factor. Unlike assigning ScoringFactor, a
// weight of 0 is kept.
func (b *TestBase) SetWeight(v FloatValue) {
	b.ScoringFactor = v
	b.weightSet = true
}

// Weight returns the resolved scoring factor.
func (b *TestBase) Weight(qi *Instance) float32 {
	if !b.weightSet && b.ScoringFactor.IsZero() {
		return 1
	}
	return b.ScoringFactor.Resolve(qi)
}

// NormalizeItemScores implements Test.
//
// The raw values the test committed for the current test are mapped to
// [0, 1] between the clamp bounds (observed min/max when unclamped), shaped
// by the scoring equation, weighted and added to each valid item's score.
func (b *TestBase) NormalizeItemScores(qi *Instance) {
	if !b.TestPurpose.Scores() || len(qi.details) != len(qi.items) {
		return
	}
	ct := qi.currentTest

	minScore, maxScore, found := qi.observedTestRange(ct)
	if !found {
		return
	}

	switch b.ClampMinType {
	case ClampSpecified:
		minScore = b.ScoreClampMin.Resolve(qi)
	case ClampFilterThreshold:
		minScore = b.FilterMin.Resolve(qi)
	}
	switch b.ClampMaxType {
	case ClampSpecified:
		maxScore = b.ScoreClampMax.Resolve(qi)
	case ClampFilterThreshold:
		maxScore = b.FilterMax.Resolve(qi)
	}

	weight := b.Weight(qi)
	for i := range qi.items {
		if !qi.items[i].IsValid() {
			continue
		}
		d := &qi.details[i]
		value := d.TestResults[ct]
		if value == SkippedValue {
			d.TestWeightedScores[ct] = 0
			continue
		}

		var n float32
		if minScore == maxScore {
			if value != 0 {
				n = 1
			}
		} else {
			clamped := min(max(value, minScore), maxScore)
			n = (clamped - minScore) / (maxScore - minScore)
		}

		weighted := weight * b.shape(n)
		d.TestWeightedScores[ct] = weighted
		qi.items[i].Score += weighted
	}
}

func (b *TestBase) shape(n float32) float32 {
	switch b.Equation {
	case InverseLinear:
		return 1 - n
	case Square:
		return n * n
	case Constant:
		return 1
	default:
		return n
	}
}
