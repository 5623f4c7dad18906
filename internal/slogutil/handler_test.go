package slogutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atlas/internal/config"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("cache refreshed", "slug", "web-sdk", "count", 42, "note", "has space")

	output := buf.String()
	for _, want := range []string{"[info]", "cache refreshed", " | slug=web-sdk", "count=42", `note="has space"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("each record should end with a newline")
	}
}

func TestLineHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("d") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("i") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("w") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("e") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestLineHandler_Filtering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn should pass at warn level")
	}
}

func TestLineHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("component", "cache").WithGroup("refresh")
	logger.Info("done", "slug", "a")

	out := buf.String()
	if !strings.Contains(out, "component=cache") {
		t.Errorf("missing pre-set attr: %s", out)
	}
	if !strings.Contains(out, "refresh.slug=a") {
		t.Errorf("missing grouped attr: %s", out)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		name       string
		verbosity  int
		quiet      bool
		configured slog.Level
		want       slog.Level
	}{
		{"quiet wins", 2, true, slog.LevelDebug, levelSilent},
		{"default keeps configured", 0, false, slog.LevelWarn, slog.LevelWarn},
		{"-v raises to info", 1, false, slog.LevelWarn, slog.LevelInfo},
		{"-v keeps debug", 1, false, slog.LevelDebug, slog.LevelDebug},
		{"-vv is debug", 2, false, slog.LevelError, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelFromVerbosity(tt.verbosity, tt.quiet, tt.configured); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetup_WithFile(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "atlas.log")

	logger, closer, err := Setup(&console, config.LoggingConfig{Format: "human", File: logPath}, slog.LevelWarn)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Info("file only")
	logger.Warn("both")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(console.String(), "file only") {
		t.Error("console should respect warn level")
	}
	if !strings.Contains(console.String(), "both") {
		t.Error("console missing warn record")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"file only", "both"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q: %s", want, data)
		}
	}
}

func TestSetup_JSON(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := Setup(&console, config.LoggingConfig{Format: "json"}, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello", "slug", "x")
	if !strings.Contains(console.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON output, got %s", console.String())
	}
}

func TestDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled at any level")
	}
}

func TestSetup_RotatesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "atlas.log")
	cfg := config.LoggingConfig{Format: "human", File: logPath, MaxSize: "200B", MaxBackups: 1}

	logger, closer, err := Setup(io.Discard, cfg, slog.LevelInfo)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	for i := 0; i < 10; i++ {
		logger.Info("Refreshed project", "slug", "web-sdk", "attempt", i)
	}
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Errorf("expected a rotated backup: %v", err)
	}
	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 200 {
		t.Errorf("active log is %d bytes, want <= 200", info.Size())
	}
}
