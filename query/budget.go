package query

import "time"

// StepBudget enforces the wall-clock limit of one ExecuteOneStep call.
//
// Design: created fresh per step, checked once per item by the Iterator.
// A negative limit disables the deadline.
type StepBudget struct {
	deadline time.Time
	started  time.Time
	clock    func() time.Time

	bounded   bool
	exhausted bool
}

// NewStepBudget creates a budget starting now.
func NewStepBudget(limit time.Duration, clock func() time.Time) *StepBudget {
	if clock == nil {
		clock = time.Now
	}
	b := &StepBudget{
		started: clock(),
		clock:   clock,
	}
	if limit >= 0 {
		b.deadline = b.started.Add(limit)
		b.bounded = true
	}
	return b
}

// Unbounded reports whether the budget has no deadline.
func (b *StepBudget) Unbounded() bool {
	return b == nil || !b.bounded
}

// CheckDeadline reports whether time is left.
// Once exhausted, it stays exhausted.
func (b *StepBudget) CheckDeadline() bool {
	if b.Unbounded() {
		return true
	}
	if b.exhausted {
		return false
	}
	if !b.clock().Before(b.deadline) {
		b.exhausted = true
		return false
	}
	return true
}

// Exhausted reports whether the deadline was hit.
func (b *StepBudget) Exhausted() bool {
	return b != nil && b.exhausted
}

// Elapsed returns the time since the budget started.
func (b *StepBudget) Elapsed() time.Duration {
	if b == nil {
		return 0
	}
	return b.clock().Sub(b.started)
}
