package slogutil

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"atlas/internal/config"
)

// levelSilent sits above every standard level.
const levelSilent = slog.Level(100)

// NewLogger creates a line-format logger.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDiscardLogger creates a logger that discards all output.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, &slog.HandlerOptions{Level: levelSilent}))
}

// NewHandler returns a handler for the given format ("human" or "json").
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return NewLineHandler(w, opts)
}

// LevelFromString converts a string to a slog.Level.
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity converts CLI verbosity flags to a slog.Level.
// quiet suppresses everything; 0 keeps the configured level; 1 is info; 2+ is debug.
func LevelFromVerbosity(verbosity int, quiet bool, configured slog.Level) slog.Level {
	if quiet {
		return levelSilent
	}
	switch verbosity {
	case 0:
		return configured
	case 1:
		return min(configured, slog.LevelInfo)
	default:
		return slog.LevelDebug
	}
}

// Setup builds the process logger: stderr always, plus the configured log
// file when one is set, rotated by size. The returned closer is never nil.
func Setup(stderr io.Writer, cfg config.LoggingConfig, level slog.Level) (*slog.Logger, io.Closer, error) {
	console := NewHandler(stderr, cfg.Format, level)
	if cfg.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	f, err := OpenRotatingFile(cfg.File, ParseSize(cfg.MaxSize), cfg.MaxBackups)
	if err != nil {
		return slog.New(console), nopCloser{}, err
	}
	// The file always records at least info, whatever the console shows.
	file := NewHandler(f, cfg.Format, min(level, slog.LevelInfo))
	return slog.New(NewTeeHandler(console, file)), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// TeeHandler writes logs to multiple handlers.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler creates a handler that writes to all provided handlers.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	return &TeeHandler{handlers: handlers}
}

// Enabled returns true if any handler is enabled for the level.
func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes the record to every enabled handler and returns the first error.
func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: next}
}

func (t *TeeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: next}
}
