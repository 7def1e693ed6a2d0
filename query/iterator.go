package query

// Iterator walks the items of the current test, skipping discarded ones,
// and commits each item's combined result when it moves on.
//
// It is a value constructed fresh on every resume; the only state carried
// between steps is the instance's resume index. Typical use:
//
//	for it := qi.Iterate(t); it.Next(); {
//	    it.SetScore(query.FilterMinimum, v, lo, hi)
//	}
type Iterator struct {
	qi       *Instance
	purpose  Purpose
	filterOp FilterOp
	scoreOp  ScoreOp

	index       int
	started     bool
	processed   int
	matchLogged bool

	// per item
	score     float32
	numScores int
	numPassed int
	numFailed int
	forced    bool
	skipped   bool
}

// Iterate starts iterating for t at the instance's resume index.
func (qi *Instance) Iterate(t Test) Iterator {
	return qi.IterateFrom(t, qi.currentTestStartingItem)
}

// IterateFrom starts iterating for t at item start.
func (qi *Instance) IterateFrom(t Test, start int) Iterator {
	return Iterator{
		qi:       qi,
		purpose:  t.Purpose(),
		filterOp: t.FilterOp(),
		scoreOp:  t.ScoreOp(),
		index:    max(start, 0),
	}
}

// Index returns the current item index.
func (it *Iterator) Index() int { return it.index }

// Processed returns how many items were visited.
func (it *Iterator) Processed() int { return it.processed }

// Next commits the current item and moves to the next valid one.
// It returns false at the end of the items, when the step budget ran out
// or when a single-result short-circuit fired. At least one item is
// visited per call sequence before the budget is checked.
func (it *Iterator) Next() bool {
	qi := it.qi
	if it.started {
		it.storeResult()
		it.index++
	}
	it.started = true

	if qi.foundSingleResult {
		qi.currentTestStartingItem = len(qi.items)
		return false
	}

	if it.processed > 0 && !qi.budget.CheckDeadline() {
		qi.currentTestStartingItem = it.index
		return false
	}

	for it.index < len(qi.items) && !qi.items[it.index].IsValid() {
		it.index++
	}
	if it.index >= len(qi.items) {
		qi.currentTestStartingItem = len(qi.items)
		return false
	}

	it.score = 0
	it.numScores = 0
	it.numPassed = 0
	it.numFailed = 0
	it.forced = false
	it.skipped = false
	it.processed++
	qi.stepItems++
	return true
}

// SetScore records one context's value for the current item. Filtering
// tests compare value against [lo, hi] according to filterType. Match only
// applies to bool results, so a float value with FilterMatch fails.
// Only contexts that pass the filter contribute to the item's score.
func (it *Iterator) SetScore(filterType FilterType, value, lo, hi float32) {
	if !it.purpose.Filters() {
		it.addScore(value)
		return
	}

	var passed bool
	switch filterType {
	case FilterMinimum:
		passed = value >= lo
	case FilterMaximum:
		passed = value <= hi
	case FilterMatch:
		if !it.matchLogged {
			it.matchLogged = true
			it.qi.logger.Error("float test result used with match filter",
				"option", it.qi.optionIndex,
				"test", it.qi.currentTest,
				"item", it.index,
			)
		}
	default:
		passed = value >= lo && value <= hi
	}
	it.recordFilter(passed)
	if passed {
		it.addScore(value)
	}
}

// SetBoolScore records one context's boolean result for the current item.
// The item passes when value equals want.
func (it *Iterator) SetBoolScore(value, want bool) {
	passed := value == want
	if it.purpose.Filters() {
		it.recordFilter(passed)
		if passed {
			it.addScore(1)
		}
		return
	}
	if passed {
		it.addScore(1)
	} else {
		it.addScore(0)
	}
}

// ForceItemState overrides the combined result of the current item.
func (it *Iterator) ForceItemState(passed bool, score float32) {
	it.forced = true
	it.score = score
	it.numScores = 1
	it.numPassed = 0
	it.numFailed = 0
	if passed {
		it.numPassed = 1
	} else {
		it.numFailed = 1
	}
}

// SkipItem marks the current item as not applicable: its score and
// validity stay untouched.
func (it *Iterator) SkipItem() {
	it.skipped = true
}

func (it *Iterator) recordFilter(passed bool) {
	if it.forced {
		return
	}
	if passed {
		it.numPassed++
	} else {
		it.numFailed++
	}
}

func (it *Iterator) addScore(v float32) {
	if it.forced {
		return
	}
	if it.numScores == 0 {
		it.score = v
		it.numScores = 1
		return
	}
	switch it.scoreOp {
	case MinScore:
		it.score = min(it.score, v)
	case MaxScore:
		it.score = max(it.score, v)
	default:
		it.score += v
	}
	it.numScores++
}

func (it *Iterator) passed() bool {
	if !it.purpose.Filters() || it.numPassed+it.numFailed == 0 {
		return true
	}
	if it.filterOp == AnyPass {
		return it.numPassed > 0
	}
	return it.numFailed == 0
}

func (it *Iterator) storeResult() {
	qi := it.qi
	i := it.index
	if i >= len(qi.items) {
		return
	}
	ct := qi.currentTest

	var details *ItemDetails
	if i < len(qi.details) && ct >= 0 && ct < len(qi.details[i].TestResults) {
		details = &qi.details[i]
	}

	if it.skipped && !it.forced {
		if details != nil {
			details.TestResults[ct] = SkippedValue
		}
		return
	}

	score := it.score
	if it.scoreOp == AverageScore && !it.forced && it.numScores > 1 {
		score /= float32(it.numScores)
	}
	if details != nil {
		details.TestResults[ct] = score
	}

	if !it.passed() {
		qi.HandleFailedTestResult(i)
		return
	}

	if qi.passOnSingleResult {
		qi.foundSingleResult = true
		qi.pickSingleItem(i)
	}
}
