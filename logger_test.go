package envquery

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/envquery/query"
)

func captureLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestLogger_LogQueryFinished(t *testing.T) {
	ctx := context.Background()
	res := &query.Result{QueryID: 7, QueryName: "cover", Owner: 3, Status: query.Success, ExecutionTime: 10 * time.Millisecond, Steps: 4}

	t.Run("slow", func(t *testing.T) {
		l, buf := captureLogger(slog.LevelDebug)
		l.LogQueryFinished(ctx, res, time.Millisecond)
		rec := lastRecord(t, buf)
		assert.Equal(t, "WARN", rec["level"])
		assert.Equal(t, "slow query", rec["msg"])
		assert.Equal(t, "cover", rec["query"])
		assert.Equal(t, float64(7), rec["query_id"])
	})

	t.Run("success", func(t *testing.T) {
		l, buf := captureLogger(slog.LevelDebug)
		l.LogQueryFinished(ctx, res, 0)
		rec := lastRecord(t, buf)
		assert.Equal(t, "DEBUG", rec["level"])
		assert.Equal(t, "Success", rec["status"])
	})

	t.Run("failed", func(t *testing.T) {
		l, buf := captureLogger(slog.LevelInfo)
		failed := *res
		failed.Status = query.Failed
		l.LogQueryFinished(ctx, &failed, time.Second)
		rec := lastRecord(t, buf)
		assert.Equal(t, "INFO", rec["level"])
		assert.Equal(t, "query finished without result", rec["msg"])
	})
}

func TestLogger_With(t *testing.T) {
	l, buf := captureLogger(slog.LevelInfo)
	l.WithQuery("cover").WithOwner(9).LogRejected(context.Background(), "cover", "limit")

	rec := lastRecord(t, buf)
	assert.Equal(t, "query rejected", rec["msg"])
	assert.Equal(t, float64(9), rec["owner"])
	assert.Equal(t, "limit", rec["reason"])
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.LogAborted(context.Background(), 1, "q")
}
