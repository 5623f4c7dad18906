package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"atlas/internal/atlas"
	"atlas/internal/config"
	"atlas/internal/paths"
	"atlas/internal/slogutil"
)

// session is the engine and logger for one command invocation.
type session struct {
	engine *atlas.Engine
	logger *slog.Logger
	closer io.Closer
}

// openSession loads settings from the Atlas home and builds the engine.
// Unreadable settings fall back to the defaults with a warning.
func openSession() (*session, error) {
	layout, err := paths.NewLayout(atlasHomeFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to locate atlas home: %w", err)
	}

	cfg, cfgErr := config.LoadConfig(layout)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	level := slogutil.LevelFromVerbosity(verbosity, quietFlag, slogutil.LevelFromString(cfg.Logging.Level))
	logger, closer, err := slogutil.Setup(os.Stderr, cfg.Logging, level)
	if err != nil {
		logger.Warn("Log file unavailable, logging to stderr only", "error", err.Error())
	}
	if cfgErr != nil {
		logger.Warn("Failed to load settings, using defaults", "file", layout.SettingsPath(), "error", cfgErr.Error())
	}

	engine, err := atlas.NewEngine(atlas.Options{
		Layout: layout,
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	logger.Debug("Engine ready", "home", layout.Home)
	return &session{engine: engine, logger: logger, closer: closer}, nil
}

func (s *session) Close() {
	_ = s.closer.Close()
}

// target picks the project a command works on: the positional slug, then
// --project, then $ATLAS_PROJECT, then the project containing the current
// directory.
func (s *session) target(slug string) (string, error) {
	if slug == "" {
		slug = projectFlag
	}
	t, err := s.engine.ResolveTarget(slug, "")
	if err != nil {
		return "", err
	}
	s.logger.Debug("Resolved project", "slug", t.Slug, "source", string(t.Source))
	return t.Slug, nil
}

// optionalArg returns args[i] or "".
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
