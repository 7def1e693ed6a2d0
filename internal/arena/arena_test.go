package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAcquirer struct {
	limit int64
	used  int64
}

func (c *countingAcquirer) AcquireMemory(amount int64) error {
	if c.limit > 0 && c.used+amount > c.limit {
		return errors.New("limit")
	}
	c.used += amount
	return nil
}

func (c *countingAcquirer) ReleaseMemory(amount int64) {
	c.used -= amount
}

func TestArena_AppendGet(t *testing.T) {
	a := New(4)

	h0, err := a.Append([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	h1, err := a.Append([]byte{5, 6, 7, 8})
	require.NoError(t, err)

	assert.Equal(t, 0, h0.Offset())
	assert.Equal(t, 4, h1.Offset())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []byte{5, 6, 7, 8}, a.Get(h1))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, a.Bytes())
	assert.Nil(t, a.Get(Handle(8)))
}

func TestArena_StrideMismatch(t *testing.T) {
	a := New(12)

	_, err := a.Append([]byte{1, 2})
	assert.ErrorIs(t, err, ErrStrideMismatch)
	assert.Equal(t, 0, a.Len())
}

func TestArena_GetDoesNotAllowAppendThrough(t *testing.T) {
	a := New(2)
	h, err := a.Append([]byte{1, 2})
	require.NoError(t, err)
	_, err = a.Append([]byte{3, 4})
	require.NoError(t, err)

	p := a.Get(h)
	p = append(p, 9)
	assert.Equal(t, []byte{1, 2, 3, 4}, a.Bytes())
	assert.Len(t, p, 3)
}

func TestArena_MemoryAccounting(t *testing.T) {
	acq := &countingAcquirer{}
	a := New(8, WithMemoryAcquirer(acq))

	for i := 0; i < MinGrowItems+1; i++ {
		_, err := a.Append(make([]byte, 8))
		require.NoError(t, err)
	}

	st := a.Stats()
	assert.Equal(t, uint64(2), st.Grows)
	assert.Equal(t, int64(st.BytesReserved), acq.used)
	assert.Equal(t, uint64((MinGrowItems+1)*8), st.BytesUsed)

	a.Free()
	assert.Equal(t, int64(0), acq.used)

	// Idempotent
	a.Free()
	assert.Equal(t, int64(0), acq.used)
}

func TestArena_AllocationFailed(t *testing.T) {
	acq := &countingAcquirer{limit: 16}
	a := New(8, WithMemoryAcquirer(acq))

	_, err := a.Append(make([]byte, 8))
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, int64(0), acq.used)
}

func TestArena_ResetKeepsCapacity(t *testing.T) {
	acq := &countingAcquirer{}
	a := New(4, WithMemoryAcquirer(acq))
	_, err := a.Append([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	reserved := acq.used
	a.Reset(2)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, uint16(2), a.Stride())

	_, err = a.Append([]byte{9, 9})
	require.NoError(t, err)
	assert.Equal(t, reserved, acq.used)
}

func TestArena_Clone(t *testing.T) {
	a := New(1)
	_, err := a.Append([]byte{7})
	require.NoError(t, err)

	c := a.Clone()
	c[0] = 1
	assert.Equal(t, []byte{7}, a.Bytes())
}
