package debug

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"

	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
)

// Step is one captured stage of a query run.
type Step struct {
	Stage       string
	OptionIndex int
	TestIndex   int
	ItemType    string
	NumItems    int
	NumValid    int
	Scores      []float32
	// Invalid holds the indices of items discarded when the step completed.
	Invalid *roaring.Bitmap
	Elapsed time.Duration

	payload     []byte
	compression CompressionType
}

// Payload returns the decompressed item payload buffer of the step.
func (s *Step) Payload() ([]byte, error) {
	if s.payload == nil {
		return nil, nil
	}
	return decompressBlock(s.payload, s.compression)
}

// CompressedSize returns the stored payload size in bytes.
func (s *Step) CompressedSize() int { return len(s.payload) }

// Snapshot is a finished query as recorded by a Debugger.
type Snapshot struct {
	ID          uuid.UUID
	QueryID     query.ID
	QueryName   string
	Owner       model.ActorID
	Timestamp   time.Time
	Status      query.Status
	RunMode     query.RunMode
	OptionIndex int
	// PerformedTests names the tests of the last option that ran.
	PerformedTests []string
	Steps          []Step
	// FailedByTest maps a test index to the items (by generation index)
	// that test discarded.
	FailedByTest  map[int]*roaring.Bitmap
	ExecutionTime time.Duration
}

// NumFailed returns how many items test discarded.
func (s *Snapshot) NumFailed(test int) uint64 {
	if bm, ok := s.FailedByTest[test]; ok {
		return bm.GetCardinality()
	}
	return 0
}

func newStep(s query.StepSnapshot, c CompressionType) (Step, error) {
	step := Step{
		Stage:       s.Stage,
		OptionIndex: s.OptionIndex,
		TestIndex:   s.TestIndex,
		NumItems:    len(s.Items),
		NumValid:    s.NumValid,
		Scores:      make([]float32, len(s.Items)),
		Invalid:     roaring.New(),
		Elapsed:     s.Elapsed,
		compression: c,
	}
	if s.ItemType != nil {
		step.ItemType = s.ItemType.Name()
	}
	for i, item := range s.Items {
		step.Scores[i] = item.Score
		if !item.IsValid() {
			step.Invalid.Add(uint32(i)) //nolint:gosec // item counts fit in uint32
		}
	}
	step.Invalid.RunOptimize()

	if len(s.RawData) > 0 {
		block, err := compressBlock(s.RawData, c)
		if err != nil {
			return Step{}, err
		}
		step.payload = block
	}
	return step, nil
}

// failedByTest collects per test the generation indices of discarded items
// from the last step that still carries item details.
func failedByTest(steps []query.StepSnapshot) map[int]*roaring.Bitmap {
	out := make(map[int]*roaring.Bitmap)
	for i := len(steps) - 1; i >= 0; i-- {
		details := steps[i].Details
		if len(details) == 0 {
			continue
		}
		for _, d := range details {
			if d.FailedTestIndex < 0 {
				continue
			}
			bm, ok := out[d.FailedTestIndex]
			if !ok {
				bm = roaring.New()
				out[d.FailedTestIndex] = bm
			}
			bm.Add(uint32(d.ItemIndex)) //nolint:gosec // item counts fit in uint32
		}
		break
	}
	return out
}
