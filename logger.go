package ipmeta

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with ipmeta-specific helpers. The library is
// quiet by default; inject a real logger via Options.Logger.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, a text handler to stderr at Info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	}))
}

// LogLoad logs the outcome of one provider load.
func (l *Logger) LogLoad(ctx context.Context, name string, id uint8, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "provider load failed",
			"provider", name,
			"id", id,
			"took", took,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "provider load completed",
			"provider", name,
			"id", id,
			"took", took,
		)
	}
}
