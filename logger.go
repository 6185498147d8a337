package confset

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with confset-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithArchive adds an archive name field to the logger.
func (l *Logger) WithArchive(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("archive", name),
	}
}

// WithDomain adds a domain id field to the logger.
func (l *Logger) WithDomain(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("domain", id),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogScan logs the outcome of a qualification scan.
func (l *Logger) LogScan(ctx context.Context, scanned, qualified, frames int, duration time.Duration) {
	l.InfoContext(ctx, "qualification scan complete",
		"scanned", scanned,
		"qualified", qualified,
		"frames", frames,
		"duration", duration,
	)
}

// LogBuild logs the outcome of a flat-index build.
func (l *Logger) LogBuild(ctx context.Context, entries int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"entries", entries,
			"duration", duration,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index build complete",
		"entries", entries,
		"duration", duration,
	)
}

// LogExcluded logs a normal, silent filter exclusion at debug level.
// Filtering rejections are not errors.
func (l *Logger) LogExcluded(ctx context.Context, domain, reason string) {
	l.DebugContext(ctx, "excluded by filter",
		"domain", domain,
		"reason", reason,
	)
}
