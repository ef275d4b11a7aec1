package bitsetcache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/bitsetcache/model"
)

// Logger wraps slog.Logger with bitsetcache-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithName adds the cache name to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("cache", name),
	}
}

// WithSegment adds a segment ID field to the logger.
func (l *Logger) WithSegment(id model.SegmentID) *Logger {
	return &Logger{
		Logger: l.Logger.With("segmentID", uint64(id)),
	}
}

// LogWarm logs a warm pass over new segments.
func (l *Logger) LogWarm(ctx context.Context, segments, filters, failed int, duration time.Duration) {
	if failed > 0 {
		l.WarnContext(ctx, "warm completed with failures",
			"segments", segments,
			"filters", filters,
			"failed", failed,
			"duration", duration,
		)
	} else {
		l.InfoContext(ctx, "warm completed",
			"segments", segments,
			"filters", filters,
			"duration", duration,
		)
	}
}

// LogClear logs a forced clear of the cache.
func (l *Logger) LogClear(ctx context.Context, reason string, segments int) {
	l.InfoContext(ctx, "cache cleared",
		"reason", reason,
		"segments", segments,
	)
}
