package ivfgo

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with ivfgo-specific context.
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

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCenters adds the requested center count to the logger.
func (l *Logger) WithCenters(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("centers", count),
	}
}

// WithSamples adds the sample count to the logger.
func (l *Logger) WithSamples(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("samples", count),
	}
}
