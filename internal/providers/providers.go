// Package providers loads provider definitions: small YAML files that declare
// a per-project file whose content is surfaced under a named field when a
// project is shown enriched.
package providers

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"atlas/internal/paths"
	"atlas/internal/slogutil"
)

// TypeFile reads a file from the project root. It is the only supported type.
const TypeFile = "file"

// Provider is one definition from the providers directory.
type Provider struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Type        string `yaml:"type,omitempty" json:"type"`
	ProjectFile string `yaml:"project_file" json:"project_file"`
	FieldName   string `yaml:"field_name" json:"field_name"`
}

// Set is the loaded provider definitions, sorted by file name.
type Set struct {
	providers []Provider
	logger    *slog.Logger
}

// Load reads every *.yaml definition in dir. Definitions that fail to parse,
// lack a name, field_name or project_file, or use another type are skipped
// and logged. A missing dir is an empty set.
func Load(dir string, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	s := &Set{logger: logger}

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read provider %s: %w", f, err)
		}
		var p Provider
		if err := yaml.Unmarshal(data, &p); err != nil {
			logger.Warn("Skipping unparseable provider", "file", f, "error", err.Error())
			continue
		}
		if p.Type == "" {
			p.Type = TypeFile
		}
		switch {
		case p.Name == "" || p.FieldName == "":
			logger.Warn("Skipping provider without name or field_name", "file", f)
			continue
		case p.Type != TypeFile:
			logger.Info("Skipping unsupported provider type", "provider", p.Name, "type", p.Type)
			continue
		case p.ProjectFile == "":
			logger.Warn("Skipping file provider without project_file", "provider", p.Name)
			continue
		}
		s.providers = append(s.providers, p)
	}
	return s, nil
}

// List returns the loaded definitions.
func (s *Set) List() []Provider {
	return slices.Clone(s.providers)
}

// Len returns the number of loaded definitions.
func (s *Set) Len() int { return len(s.providers) }

// Enrich reads each provider's file under root and returns the values keyed
// by field name. When the file is a mapping containing the field name, only
// that value is used; otherwise the whole document is. Absent files and
// files outside root are skipped.
func (s *Set) Enrich(root string) map[string]interface{} {
	out := make(map[string]interface{})
	if len(s.providers) == 0 {
		return out
	}
	base, err := paths.Normalize(root)
	if err != nil {
		return out
	}
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		return out
	}

	for _, p := range s.providers {
		target, err := paths.Normalize(filepath.Join(base, p.ProjectFile))
		if err != nil || !paths.IsWithin(base, target) {
			s.logger.Warn("Provider file escapes the project root", "provider", p.Name, "project_file", p.ProjectFile)
			continue
		}
		data, err := os.ReadFile(target)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("Failed to read provider file", "provider", p.Name, "error", err.Error())
			}
			continue
		}
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			s.logger.Warn("Failed to parse provider file", "provider", p.Name, "file", target, "error", err.Error())
			continue
		}
		if m, ok := doc.(map[string]interface{}); ok {
			if v, ok := m[p.FieldName]; ok {
				out[p.FieldName] = v
				continue
			}
		}
		out[p.FieldName] = doc
	}
	return out
}
