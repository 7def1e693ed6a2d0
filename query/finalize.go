package query

const (
	randomBest5PctFactor  float32 = 0.95
	randomBest25PctFactor float32 = 0.75
)

// finalizeQuery applies the run mode to the current option's items and
// ends the instance.
func (qi *Instance) finalizeQuery() {
	defer qi.captureFinal()

	if qi.numValidItems <= 0 {
		qi.status = Failed
		qi.items = nil
		qi.details = nil
		qi.numValidItems = 0
		qi.logger.Debug("query failed", "options", len(qi.options), "steps", qi.stepCount)
		return
	}

	switch qi.mode {
	case SingleBestItem:
		if !qi.foundSingleResult {
			qi.sortScores()
			qi.pickSingleItem(0)
		}
	case RandomBest5Pct:
		qi.pickRandomItemOfScoreAtLeast(randomBest5PctFactor)
	case RandomBest25Pct:
		qi.pickRandomItemOfScoreAtLeast(randomBest25PctFactor)
	default:
		qi.sortScores()
		qi.items = qi.items[:qi.numValidItems]
		if len(qi.details) > qi.numValidItems {
			qi.details = qi.details[:qi.numValidItems]
		}
		qi.normalizeScores()
	}

	qi.status = Success
	qi.logger.Debug("query finished",
		"option", qi.optionIndex,
		"items", len(qi.items),
		"steps", qi.stepCount,
		"execution_time", qi.totalExecutionTime,
	)
}

// pickRandomItemOfScoreAtLeast picks uniformly among the sorted prefix of
// items scoring at least factor times the best score.
func (qi *Instance) pickRandomItemOfScoreAtLeast(factor float32) {
	qi.sortScores()

	threshold := qi.items[0].Score * factor
	numBest := 1
	for numBest < qi.numValidItems && qi.items[numBest].Score >= threshold {
		numBest++
	}

	qi.pickSingleItem(qi.rng.Intn(numBest))
}

// normalizeScores maps the scores of the remaining items to [0, 1].
func (qi *Instance) normalizeScores() {
	if len(qi.items) == 0 {
		return
	}

	lo, hi := qi.items[0].Score, qi.items[0].Score
	for _, item := range qi.items[1:] {
		lo = min(lo, item.Score)
		hi = max(hi, item.Score)
	}

	for i := range qi.items {
		item := &qi.items[i]
		switch {
		case hi == lo && item.Score == 0:
			item.Score = 0
		case hi == lo:
			item.Score = 1
		default:
			item.Score = (item.Score - lo) / (hi - lo)
		}
	}
}

// observedTestRange returns the bounds of the values committed by test ct
// for valid items, ignoring skipped values.
func (qi *Instance) observedTestRange(ct int) (lo, hi float32, found bool) {
	for i := range qi.items {
		if !qi.items[i].IsValid() || i >= len(qi.details) {
			continue
		}
		results := qi.details[i].TestResults
		if ct < 0 || ct >= len(results) || results[ct] == SkippedValue {
			continue
		}
		v := results[ct]
		if !found {
			lo, hi, found = v, v, true
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, found
}
