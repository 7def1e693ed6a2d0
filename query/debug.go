package query

import (
	"time"

	"github.com/hupe1980/envquery/itemtype"
)

// StepSnapshot is the item state after one completed stage.
type StepSnapshot struct {
	// Stage is the generator or test description.
	Stage       string
	OptionIndex int
	TestIndex   int
	ItemType    itemtype.Descriptor
	Items       []Item
	Details     []ItemDetails
	RawData     []byte
	NumValid    int
	// Elapsed is the total execution time when the snapshot was taken.
	Elapsed time.Duration
}

// DebugData collects snapshots of an instance run with debug capture on.
type DebugData struct {
	QueryID            ID
	QueryName          string
	PerformedTestNames []string
	Steps              []StepSnapshot
	Final              *StepSnapshot
}

func newDebugData(qi *Instance) *DebugData {
	return &DebugData{QueryID: qi.id, QueryName: qi.name}
}

// DebugData returns captured snapshots, or nil when capture is off.
func (qi *Instance) DebugData() *DebugData { return qi.debug }

func (qi *Instance) snapshot(stage string) StepSnapshot {
	items := make([]Item, len(qi.items))
	copy(items, qi.items)

	details := make([]ItemDetails, len(qi.details))
	for i, d := range qi.details {
		details[i] = ItemDetails{
			TestResults:        append([]float32(nil), d.TestResults...),
			TestWeightedScores: append([]float32(nil), d.TestWeightedScores...),
			FailedTestIndex:    d.FailedTestIndex,
			ItemIndex:          d.ItemIndex,
		}
	}

	return StepSnapshot{
		Stage:       stage,
		OptionIndex: qi.optionIndex,
		TestIndex:   qi.currentTest,
		ItemType:    qi.itemType,
		Items:       items,
		Details:     details,
		RawData:     qi.store.Clone(),
		NumValid:    qi.numValidItems,
		Elapsed:     qi.totalExecutionTime,
	}
}

func (qi *Instance) captureStep(opt *Option) {
	if qi.debug == nil {
		return
	}
	stage := "generator"
	switch {
	case qi.currentTest >= 0 && qi.currentTest < len(opt.Tests) && opt.Tests[qi.currentTest] != nil:
		stage = opt.Tests[qi.currentTest].Describe()
	case qi.currentTest < 0 && opt.Generator != nil:
		stage = opt.Generator.Describe()
	}
	qi.debug.Steps = append(qi.debug.Steps, qi.snapshot(stage))
}

func (qi *Instance) captureFinal() {
	if qi.debug == nil {
		return
	}
	s := qi.snapshot("final")
	qi.debug.Final = &s
}
