package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	// Test with limit
	c := NewController(Config{MemoryLimitBytes: 100})

	// Acquire 50
	err := c.AcquireMemory(50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), c.MemoryUsage())

	// Acquire 40
	err = c.AcquireMemory(40)
	require.NoError(t, err)
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	err = c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Release 50
	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	// Now Acquire 20 should succeed
	err = c.AcquireMemory(20)
	require.NoError(t, err)
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	err := c.AcquireMemory(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Slots(t *testing.T) {
	c := NewController(Config{MaxRunningQueries: 2})

	assert.True(t, c.TryAcquireSlot())
	assert.True(t, c.TryAcquireSlot())

	// Try 3rd
	assert.False(t, c.TryAcquireSlot())
	assert.Equal(t, int64(2), c.SlotsInUse())

	// Release 1
	c.ReleaseSlot()

	// Try 3rd again
	assert.True(t, c.TryAcquireSlot())
}

func TestController_UnlimitedSlots(t *testing.T) {
	c := NewController(Config{})

	for i := 0; i < 100; i++ {
		require.True(t, c.TryAcquireSlot())
	}
	assert.Equal(t, int64(100), c.SlotsInUse())
}

func TestController_StartRate(t *testing.T) {
	c := NewController(Config{QueryStartsPerSec: 2, QueryStartBurst: 2})
	now := time.Now()

	assert.True(t, c.AllowStart(now))
	assert.True(t, c.AllowStart(now))
	assert.False(t, c.AllowStart(now))

	// Tokens refill at 2/s
	assert.True(t, c.AllowStart(now.Add(time.Second)))
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
	assert.True(t, c.TryAcquireSlot())
	c.ReleaseSlot()
	assert.Equal(t, int64(0), c.SlotsInUse())
	assert.True(t, c.AllowStart(time.Now()))
}
