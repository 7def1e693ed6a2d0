package query

import "github.com/hupe1980/envquery/itemtype"

// Generator produces the initial item set of an option.
//
// GenerateItems is called exactly once per option run, with the item store
// already configured for ItemType. It adds items with the Instance Add*
// methods.
type Generator interface {
	ItemType() itemtype.Descriptor
	GenerateItems(qi *Instance)
	Describe() string
}

// Test filters and/or scores items.
//
// RunTest must touch items only through an Iterator obtained from
// qi.Iterate. NormalizeItemScores is called once after the test completed,
// unless the test ran as the final single-result condition.
type Test interface {
	Describe() string
	Purpose() Purpose
	FilterOp() FilterOp
	ScoreOp() ScoreOp
	CanRunAsFinalCondition() bool
	RunTest(qi *Instance)
	NormalizeItemScores(qi *Instance)
}

// Purpose selects whether a test filters, scores, or both.
type Purpose uint8

const (
	// FilterAndScore discards failing items and scores the rest.
	FilterAndScore Purpose = iota
	// FilterOnly discards failing items.
	FilterOnly
	// ScoreOnly scores items without discarding any.
	ScoreOnly
)

// String returns a string representation of the purpose.
func (p Purpose) String() string {
	switch p {
	case FilterAndScore:
		return "FilterAndScore"
	case FilterOnly:
		return "Filter"
	case ScoreOnly:
		return "Score"
	default:
		return "Unknown"
	}
}

// Filters reports whether tests with purpose p may discard items.
func (p Purpose) Filters() bool { return p != ScoreOnly }

// Scores reports whether tests with purpose p contribute to scores.
func (p Purpose) Scores() bool { return p != FilterOnly }

// FilterOp combines filter results of a test that checks multiple contexts.
type FilterOp uint8

const (
	// AllPass requires every context to pass.
	AllPass FilterOp = iota
	// AnyPass requires at least one context to pass.
	AnyPass
)

// ScoreOp combines scores of a test that checks multiple contexts.
type ScoreOp uint8

const (
	// AverageScore averages the contributing contexts.
	AverageScore ScoreOp = iota
	// MinScore keeps the lowest contribution.
	MinScore
	// MaxScore keeps the highest contribution.
	MaxScore
	// SumScore adds all contributions.
	SumScore
)

// FilterType is the comparison applied by a filtering test.
type FilterType uint8

const (
	// FilterRange passes values in [min, max].
	FilterRange FilterType = iota
	// FilterMinimum passes values >= min.
	FilterMinimum
	// FilterMaximum passes values <= max.
	FilterMaximum
	// FilterMatch passes bool values equal to the expected value.
	FilterMatch
)

// ScoringEquation maps a normalized test value to a score.
type ScoringEquation uint8

const (
	// Linear scores n.
	Linear ScoringEquation = iota
	// InverseLinear scores 1 - n.
	InverseLinear
	// Square scores n*n.
	Square
	// Constant scores 1 for every passing item.
	Constant
)

// ClampType selects the bound used when normalizing a test's values.
type ClampType uint8

const (
	// ClampNone uses the observed bound.
	ClampNone ClampType = iota
	// ClampSpecified uses an explicit value.
	ClampSpecified
	// ClampFilterThreshold uses the test's filter threshold.
	ClampFilterThreshold
)

// FloatValue is a float setting that a named query param may override.
type FloatValue struct {
	Value float32
	Param string
}

// Float returns a constant FloatValue.
func Float(v float32) FloatValue { return FloatValue{Value: v} }

// FloatParam returns a FloatValue bound to param with a default.
func FloatParam(param string, def float32) FloatValue {
	return FloatValue{Value: def, Param: param}
}

// IsZero reports whether v is unset.
func (v FloatValue) IsZero() bool { return v.Value == 0 && v.Param == "" }

// Resolve returns the param value when supplied, else the default.
func (v FloatValue) Resolve(qi *Instance) float32 {
	if v.Param != "" && qi != nil {
		if p, ok := qi.params[v.Param]; ok {
			return p
		}
	}
	return v.Value
}
