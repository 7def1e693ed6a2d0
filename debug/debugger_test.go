package debug

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/query"
	"github.com/hupe1980/envquery/testutil"
)

func runDebugQuery(t *testing.T, owner model.ActorID) *query.Instance {
	t.Helper()
	world := model.NewSimpleWorld(&model.BasicActor{ActorID: owner})
	q := testutil.SingleOption("debugged",
		&testutil.PointGenerator{Points: testutil.Line(40)},
		testutil.Filter("x<10", func(v model.Vector) bool { return v.X < 10 }),
		testutil.Filter("even", func(v model.Vector) bool { return int(v.X)%2 == 0 }),
	)
	qi := query.NewInstance(query.Config{
		Query:          q,
		Owner:          owner,
		World:          world,
		RunMode:        query.AllMatching,
		StoreDebugInfo: true,
	})
	for !qi.IsFinished() {
		qi.ExecuteOneStep(query.Unlimited)
	}
	require.Equal(t, query.Success, qi.Status())
	return qi
}

func TestDebugger_Store(t *testing.T) {
	for _, c := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			d := New(WithCompression(c))
			qi := runDebugQuery(t, 1)

			snap, err := d.Store(qi)
			require.NoError(t, err)

			assert.Equal(t, "debugged", snap.QueryName)
			assert.Equal(t, []string{"x<10", "even"}, snap.PerformedTests)
			require.Len(t, snap.Steps, 4)
			assert.Equal(t, "final", snap.Steps[3].Stage)

			gen := snap.Steps[0]
			assert.Equal(t, 40, gen.NumItems)
			assert.Equal(t, "Point", gen.ItemType)
			raw, err := gen.Payload()
			require.NoError(t, err)
			assert.Len(t, raw, 40*12)

			assert.Equal(t, uint64(30), snap.Steps[1].Invalid.GetCardinality())
			assert.Equal(t, uint64(35), snap.Steps[2].Invalid.GetCardinality())
			assert.Equal(t, uint64(30), snap.NumFailed(0))
			assert.Equal(t, uint64(5), snap.NumFailed(1))
			assert.True(t, snap.FailedByTest[1].Contains(3))

			found, ok := d.Find(snap.ID)
			require.True(t, ok)
			assert.Same(t, snap, found)
		})
	}
}

func TestDebugger_CompressionShrinksPayload(t *testing.T) {
	qi := runDebugQuery(t, 1)

	plain, err := New(WithCompression(CompressionNone)).Store(qi)
	require.NoError(t, err)
	packed, err := New(WithCompression(CompressionZSTD)).Store(qi)
	require.NoError(t, err)

	assert.Less(t, packed.Steps[0].CompressedSize(), plain.Steps[0].CompressedSize())
}

func TestDebugger_NoDebugData(t *testing.T) {
	q := testutil.SingleOption("plain", &testutil.PointGenerator{Points: testutil.Line(2)})
	qi := query.NewInstance(query.Config{Query: q})
	qi.ExecuteOneStep(query.Unlimited)

	_, err := New().Store(qi)
	assert.ErrorIs(t, err, ErrNoDebugData)
}

func TestDebugger_QueriesForOwner(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	d := New(WithHistoryLimit(3), WithClock(clock))

	var stored []*Snapshot
	for i := 0; i < 5; i++ {
		snap, err := d.Store(runDebugQuery(t, 1))
		require.NoError(t, err)
		stored = append(stored, snap)
	}
	_, err := d.Store(runDebugQuery(t, 2))
	require.NoError(t, err)

	assert.Equal(t, 4, d.Len())
	assert.Equal(t, []model.ActorID{1, 2}, d.Owners())

	recent := d.QueriesForOwner(1, 2)
	require.Len(t, recent, 2)
	assert.Same(t, stored[4], recent[0])
	assert.Same(t, stored[3], recent[1])

	assert.Len(t, d.QueriesForOwner(1, 0), 3)
	assert.Empty(t, d.QueriesForOwner(9, 5))

	d.Clear()
	assert.Equal(t, 0, d.Len())
}

func TestCompressBlockRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("envquery"), 64)
	for _, c := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		block, err := compressBlock(data, c)
		require.NoError(t, err)

		out, err := decompressBlock(block, c)
		require.NoError(t, err)
		assert.Equal(t, data, out, c.String())
	}

	_, err := decompressBlock([]byte{1, 2}, CompressionLZ4)
	assert.ErrorIs(t, err, errShortBlock)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}
