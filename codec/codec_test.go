package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Location [3]float32 `json:"location"`
	Actor    uint64     `json:"actor,omitempty"`
	Score    float32    `json:"score"`
}

type result struct {
	Query  string `json:"query"`
	Status string `json:"status"`
	Items  []item `json:"items"`
}

func sampleResult(n int) result {
	r := result{Query: "FindCover", Status: "Success", Items: make([]item, n)}
	for i := range r.Items {
		r.Items[i] = item{Location: [3]float32{float32(i), -float32(i), 0.5}, Score: 1 / float32(i+1)}
	}
	return r
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsInterchangeable(t *testing.T) {
	in := sampleResult(8)
	for _, name := range Names() {
		enc, _ := ByName(name)
		for _, decName := range Names() {
			dec, _ := ByName(decName)
			t.Run(name+"->"+decName, func(t *testing.T) {
				data, err := enc.MarshalIndent(in, "", "  ")
				require.NoError(t, err)

				var out result
				require.NoError(t, dec.Unmarshal(data, &out))
				assert.Equal(t, in, out)
			})
		}
	}
}

func TestWriteIndented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIndented(&buf, nil, item{Actor: 7}))
	assert.JSONEq(t, `{"location":[0,0,0],"actor":7,"score":0}`, buf.String())
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
	assert.Contains(t, buf.String(), "\n  \"actor\": 7")

	assert.Error(t, WriteIndented(&buf, JSON{}, make(chan int)))
}

func TestMustMarshal(t *testing.T) {
	assert.JSONEq(t, `{"query":"","status":"","items":null}`, string(MustMarshal(nil, result{})))
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}

func BenchmarkMarshal(b *testing.B) {
	v := sampleResult(256)
	for _, name := range Names() {
		c, _ := ByName(name)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := c.Marshal(v); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
