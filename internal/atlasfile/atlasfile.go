// Package atlasfile reads and writes the per-project metadata file that lives
// in each repository root.
package atlasfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	atlaserrors "atlas/internal/errors"
	"atlas/internal/paths"
)

// DefaultFileName is the metadata file name unless settings override it.
const DefaultFileName = "atlas.yaml"

// MaxSummaryLen bounds the one-line summary shown in the session index.
const MaxSummaryLen = 100

// ProjectConfig is the repository-owned project description.
type ProjectConfig struct {
	Name     string            `yaml:"name" json:"name"`
	Summary  string            `yaml:"summary" json:"summary"`
	Group    string            `yaml:"group,omitempty" json:"group,omitempty"`
	Tags     []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	Links    OrderedMap        `yaml:"links,omitempty" json:"links,omitempty"`
	Docs     OrderedMap        `yaml:"docs,omitempty" json:"docs,omitempty"`
	Notes    string            `yaml:"notes,omitempty" json:"notes,omitempty"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Validate checks the required fields and the summary constraints.
func (c *ProjectConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return atlaserrors.NewValidationError("name", "is required")
	}
	return ValidateSummary(c.Summary)
}

// FoldSummary collapses whitespace, including line breaks, and shortens s to
// MaxSummaryLen, cutting at a word boundary. The result passes
// ValidateSummary whenever s has any text.
func FoldSummary(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxSummaryLen {
		return s
	}
	cut := string([]rune(s)[:MaxSummaryLen-3])
	if i := strings.LastIndexByte(cut, ' '); i > MaxSummaryLen/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.") + "..."
}

// ValidateSummary enforces a non-empty single line of at most MaxSummaryLen characters.
func ValidateSummary(summary string) error {
	if strings.TrimSpace(summary) == "" {
		return atlaserrors.NewValidationError("summary", "is required")
	}
	if strings.ContainsAny(summary, "\r\n") {
		return atlaserrors.NewValidationError("summary", "must be a single line")
	}
	if n := utf8.RuneCountInString(summary); n > MaxSummaryLen {
		return atlaserrors.NewValidationError("summary",
			fmt.Sprintf("is %d characters, limit is %d", n, MaxSummaryLen))
	}
	return nil
}

// HasTag reports whether tag is present, ignoring case.
func (c *ProjectConfig) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AddTags appends tags not already present.
func (c *ProjectConfig) AddTags(tags ...string) {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !c.HasTag(t) {
			c.Tags = append(c.Tags, t)
		}
	}
}

// RemoveTags drops tags, ignoring case.
func (c *ProjectConfig) RemoveTags(tags ...string) {
	kept := c.Tags[:0]
	for _, t := range c.Tags {
		drop := false
		for _, r := range tags {
			if strings.EqualFold(t, r) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, t)
		}
	}
	c.Tags = kept
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
}

// File returns the metadata file path under root.
func File(root, fileName string) string {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return filepath.Join(root, fileName)
}

// Exists reports whether root holds a metadata file.
func Exists(root, fileName string) bool {
	info, err := os.Stat(File(root, fileName))
	return err == nil && !info.IsDir()
}

// ErrNotExist is returned by Load when the file is absent.
var ErrNotExist = fs.ErrNotExist

// Load reads and parses the metadata file. It does not validate, so a cache
// refresh can still report exactly what is wrong.
func Load(root, fileName string) (*ProjectConfig, error) {
	path := File(root, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes metadata file content.
func Parse(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	return &cfg, nil
}

// Save validates cfg and atomically writes it under root.
func Save(root, fileName string, cfg *ProjectConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return paths.WriteFileAtomic(File(root, fileName), data, 0644)
}

// Marshal encodes cfg with two-space indentation.
func Marshal(v interface{}) ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal project config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
