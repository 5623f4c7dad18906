// Package slogutil provides the Atlas log handler and logger constructors.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LineHandler writes one line per record:
//
//	TIMESTAMP [level] message | key=value key=value
//
// Values containing spaces or quotes are quoted.
type LineHandler struct {
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
	mu     *sync.Mutex
}

// NewLineHandler creates a new line handler.
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &LineHandler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		buf.WriteString(r.Time.UTC().Format(time.RFC3339))
		buf.WriteByte(' ')
	}
	buf.WriteByte('[')
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	sep := " | "
	for _, a := range attrs {
		if a.Key == "" {
			continue
		}
		buf.WriteString(sep)
		sep = " "
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	for _, a := range attrs {
		merged = append(merged, h.qualify(a))
	}
	clone := *h
	clone.attrs = merged
	return &clone
}

// WithGroup returns a new handler with the given group name added.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func (h *LineHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	return slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		s = fmt.Sprint(v.Any())
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
