package query

import (
	"math"

	"github.com/hupe1980/envquery/internal/arena"
	"github.com/hupe1980/envquery/itemtype"
)

// ID identifies a query instance within its manager.
type ID uint64

// Unlimited disables the per-step deadline.
const Unlimited = -1

// SkippedValue marks a test result of an item the test did not apply to.
const SkippedValue float32 = -math.MaxFloat32

// RunMode selects the final result(s) from scored items.
type RunMode uint8

const (
	// SingleBestItem returns the best scored item.
	SingleBestItem RunMode = iota
	// RandomBest5Pct returns a random item scoring at least 95% of the best.
	RandomBest5Pct
	// RandomBest25Pct returns a random item scoring at least 75% of the best.
	RandomBest25Pct
	// AllMatching returns all valid items with normalized scores.
	AllMatching
)

// String returns a string representation of the run mode.
func (m RunMode) String() string {
	switch m {
	case SingleBestItem:
		return "SingleBestItem"
	case RandomBest5Pct:
		return "RandomBest5Pct"
	case RandomBest25Pct:
		return "RandomBest25Pct"
	case AllMatching:
		return "AllMatching"
	default:
		return "Unknown"
	}
}

// ParseRunMode parses a run mode name.
func ParseRunMode(s string) (RunMode, bool) {
	for m := SingleBestItem; m <= AllMatching; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// Status is the lifecycle state of an instance.
type Status uint8

const (
	// Processing means the instance still has steps to run.
	Processing Status = iota
	// Success means at least one item was selected.
	Success
	// Failed means no option produced a valid item.
	Failed
	// Aborted means the instance was stopped by its owner or manager.
	Aborted
	// OwnerLost means the owning actor was destroyed mid-query.
	OwnerLost
	// MissingParam means a required named param was not supplied.
	MissingParam
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case Processing:
		return "Processing"
	case Success:
		return "Success"
	case Failed:
		return "Failed"
	case Aborted:
		return "Aborted"
	case OwnerLost:
		return "OwnerLost"
	case MissingParam:
		return "MissingParam"
	default:
		return "Unknown"
	}
}

// IsFinished reports whether s is terminal.
func (s Status) IsFinished() bool {
	return s != Processing
}

// ItemHandle addresses an item payload in the instance's item store.
type ItemHandle uint32

func (h ItemHandle) arena() arena.Handle { return arena.Handle(h) }

// Item is a candidate result: a payload handle plus a score.
type Item struct {
	Handle  ItemHandle
	Score   float32
	invalid bool
}

// IsValid reports whether no test discarded the item.
func (i Item) IsValid() bool { return !i.invalid }

// Discard marks the item as rejected.
func (i *Item) Discard() { i.invalid = true }

// ItemDetails records per-test diagnostics for one item.
type ItemDetails struct {
	// TestResults holds the raw value each test committed.
	TestResults []float32
	// TestWeightedScores holds the normalized, weighted score of each test.
	TestWeightedScores []float32
	// FailedTestIndex is the test that discarded the item, or -1.
	FailedTestIndex int
	// ItemIndex is the item's position right after generation.
	ItemIndex int
}

func newItemDetails(numTests, itemIndex int) ItemDetails {
	return ItemDetails{
		TestResults:        make([]float32, numTests),
		TestWeightedScores: make([]float32, numTests),
		FailedTestIndex:    -1,
		ItemIndex:          itemIndex,
	}
}

// Option is one generator plus its ordered tests.
type Option struct {
	Generator Generator
	Tests     []Test
}

// ItemType returns the item type produced by the option's generator.
func (o Option) ItemType() itemtype.Descriptor {
	if o.Generator == nil {
		return nil
	}
	return o.Generator.ItemType()
}

// Query is a reusable query template.
type Query struct {
	Name    string
	Options []Option
	// RequiredParams lists named params that every request must supply.
	RequiredParams []string
}
