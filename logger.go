package numtrie

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with numtrie-specific helpers so call sites log
// consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, a default text handler to stderr is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	}))}
}

// WithField adds a field name to the logger.
func (l *Logger) WithField(field string) *Logger {
	return &Logger{Logger: l.Logger.With("field", field)}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, field string, doc uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"field", field,
			"doc", doc,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"field", field,
			"doc", doc,
		)
	}
}

// LogBulkInsert logs a bulk insert operation.
func (l *Logger) LogBulkInsert(ctx context.Context, field string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "bulk insert failed",
			"field", field,
			"count", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "bulk insert completed",
			"field", field,
			"count", count,
		)
	}
}

// LogSearch logs a range search.
func (l *Logger) LogSearch(ctx context.Context, field string, termCount, matches uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "range search failed",
			"field", field,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "range search completed",
			"field", field,
			"terms", termCount,
			"matches", matches,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+op+" completed",
			"name", name,
			"bytes", bytes,
		)
	}
}
