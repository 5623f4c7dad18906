package config

import (
	"os"
	"path/filepath"
	"testing"

	"atlas/internal/paths"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.IndexCap != 30 {
		t.Errorf("IndexCap = %d, want 30", cfg.IndexCap)
	}
	if cfg.ConfigFile != "atlas.yaml" {
		t.Errorf("ConfigFile = %q, want atlas.yaml", cfg.ConfigFile)
	}
	if !cfg.Detect {
		t.Error("Detect should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	layout := paths.Layout{Home: t.TempDir()}

	cfg, err := LoadConfig(layout)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IndexCap != 30 || cfg.ConfigFile != "atlas.yaml" || cfg.Logging.Level != "warn" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_File(t *testing.T) {
	home := t.TempDir()
	content := "index_cap: 5\nconfig_file: project.yaml\nlogging:\n  level: debug\n  format: json\n"
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(paths.Layout{Home: home})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IndexCap != 5 {
		t.Errorf("IndexCap = %d, want 5", cfg.IndexCap)
	}
	if cfg.ConfigFile != "project.yaml" {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Detect {
		t.Error("unset keys should keep defaults")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("index_cap: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ATLAS_INDEX_CAP", "12")
	t.Setenv("ATLAS_LOGGING_LEVEL", "error")
	t.Setenv("ATLAS_WATCH_DEBOUNCE_MS", "250")

	cfg, err := LoadConfig(paths.Layout{Home: home})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IndexCap != 12 {
		t.Errorf("IndexCap = %d, want 12 from env", cfg.IndexCap)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error from env", cfg.Logging.Level)
	}
	if cfg.Watch.DebounceMs != 250 {
		t.Errorf("Watch.DebounceMs = %d, want 250 from env", cfg.Watch.DebounceMs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero cap", func(c *Config) { c.IndexCap = 0 }, true},
		{"empty config file", func(c *Config) { c.ConfigFile = "" }, true},
		{"config file with dir", func(c *Config) { c.ConfigFile = "meta/atlas.yaml" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"json log format", func(c *Config) { c.Logging.Format = "json" }, false},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, true},
		{"rotation off", func(c *Config) { c.Logging.MaxSize = "" }, false},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("index_cap: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(paths.Layout{Home: home}); err == nil {
		t.Error("expected validation error for index_cap: 0")
	}
}
