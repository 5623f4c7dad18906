// Package config loads Atlas settings from <atlas home>/config.yaml with
// ATLAS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"atlas/internal/paths"
)

// EnvPrefix is the prefix for environment overrides, e.g. ATLAS_INDEX_CAP.
const EnvPrefix = "ATLAS"

// Config represents the Atlas settings file.
type Config struct {
	// IndexCap limits how many projects the session index lists.
	IndexCap int `json:"indexCap" mapstructure:"index_cap"`

	// ConfigFile is the per-project metadata file name.
	ConfigFile string `json:"configFile" mapstructure:"config_file"`

	// Detect enables auto-detection when `atlas add` creates a config.
	Detect bool `json:"detect" mapstructure:"detect"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Watch   WatchConfig   `json:"watch" mapstructure:"watch"`
}

// WatchConfig tunes `atlas watch`.
type WatchConfig struct {
	// DebounceMs is the quiet period before a changed project is re-cached.
	DebounceMs int `json:"debounceMs" mapstructure:"debounce_ms"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	// MaxSize rotates File once it grows past this size, e.g. "5MB".
	// Empty disables rotation.
	MaxSize    string `json:"maxSize" mapstructure:"max_size"`
	MaxBackups int    `json:"maxBackups" mapstructure:"max_backups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		IndexCap:   30,
		ConfigFile: "atlas.yaml",
		Detect:     true,
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "warn",
			MaxSize:    "5MB",
			MaxBackups: 3,
		},
		Watch: WatchConfig{DebounceMs: 500},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("index_cap", d.IndexCap)
	v.SetDefault("config_file", d.ConfigFile)
	v.SetDefault("detect", d.Detect)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("watch.debounce_ms", d.Watch.DebounceMs)
}

// LoadConfig loads settings from the Atlas home. A missing file yields the
// defaults, still subject to environment overrides.
func LoadConfig(layout paths.Layout) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(strings.TrimSuffix(paths.SettingsFile, filepath.Ext(paths.SettingsFile)))
	v.SetConfigType("yaml")
	v.AddConfigPath(layout.Home)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", layout.SettingsPath(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.IndexCap < 1 {
		return &ConfigError{Field: "index_cap", Message: "must be at least 1"}
	}
	if c.ConfigFile == "" || strings.ContainsAny(c.ConfigFile, `/\`) {
		return &ConfigError{Field: "config_file", Message: "must be a bare file name"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.max_backups", Message: "must not be negative"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounce_ms", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
