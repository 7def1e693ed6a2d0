package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepBudget(t *testing.T) {
	t.Run("unbounded", func(t *testing.T) {
		b := NewStepBudget(Unlimited, newStepClock(time.Hour).Now)
		assert.True(t, b.Unbounded())
		assert.True(t, b.CheckDeadline())
		assert.False(t, b.Exhausted())
	})

	t.Run("exhaustion is sticky", func(t *testing.T) {
		clock := newStepClock(time.Millisecond)
		b := NewStepBudget(3*time.Millisecond, clock.Now)

		assert.True(t, b.CheckDeadline())
		assert.True(t, b.CheckDeadline())
		assert.False(t, b.CheckDeadline())
		assert.True(t, b.Exhausted())

		clock.now = clock.now.Add(-time.Hour)
		assert.False(t, b.CheckDeadline())
	})

	t.Run("nil budget", func(t *testing.T) {
		var b *StepBudget
		assert.True(t, b.CheckDeadline())
		assert.Equal(t, time.Duration(0), b.Elapsed())
	})
}

func TestParseRunMode(t *testing.T) {
	for m := SingleBestItem; m <= AllMatching; m++ {
		got, ok := ParseRunMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}

	_, ok := ParseRunMode("Everything")
	assert.False(t, ok)
}
