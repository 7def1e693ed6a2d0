package envquery

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/envquery/query"
)

// Logger wraps slog.Logger with envquery-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithQuery adds the template name to the logger.
func (l *Logger) WithQuery(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("query", name),
	}
}

// WithOwner adds an owner field to the logger.
func (l *Logger) WithOwner(owner uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("owner", owner),
	}
}

// LogQueryFinished logs a finished query. Queries slower than slow are
// logged at Warn when slow is positive.
func (l *Logger) LogQueryFinished(ctx context.Context, res *query.Result, slow time.Duration) {
	attrs := []any{
		"query", res.QueryName,
		"query_id", uint64(res.QueryID),
		"owner", uint64(res.Owner),
		"status", res.Status.String(),
		"items", res.NumItems(),
		"steps", res.Steps,
		"execution_time", res.ExecutionTime,
	}

	switch {
	case slow > 0 && res.ExecutionTime > slow:
		l.WarnContext(ctx, "slow query", attrs...)
	case res.Status == query.Success:
		l.DebugContext(ctx, "query finished", attrs...)
	default:
		l.InfoContext(ctx, "query finished without result", attrs...)
	}
}

// LogRejected logs a query that could not start.
func (l *Logger) LogRejected(ctx context.Context, name string, reason string) {
	l.WarnContext(ctx, "query rejected",
		"query", name,
		"reason", reason,
	)
}

// LogAborted logs an aborted query.
func (l *Logger) LogAborted(ctx context.Context, id query.ID, name string) {
	l.DebugContext(ctx, "query aborted",
		"query", name,
		"query_id", uint64(id),
	)
}
