// Package cache keeps a derived copy of each project's metadata file under the
// Atlas home and renders the session index and detail views from it.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"atlas/internal/atlasfile"
	atlaserrors "atlas/internal/errors"
	"atlas/internal/paths"
	"atlas/internal/registry"
	"atlas/internal/slogutil"
)

// DefaultIndexCap is the number of index lines shown before truncation.
const DefaultIndexCap = 30

// Meta records where a cache entry came from.
type Meta struct {
	Source   string    `yaml:"source" json:"source"`
	CachedAt time.Time `yaml:"cached_at" json:"cachedAt"`
	Repo     string    `yaml:"repo,omitempty" json:"repo,omitempty"`
}

// Entry is one cached project: the project config plus provenance.
type Entry struct {
	atlasfile.ProjectConfig `yaml:",inline"`
	Meta                    Meta `yaml:"_cache_meta" json:"cacheMeta"`
}

// Registry is the read side of the registry store the manager needs.
type Registry interface {
	All() iter.Seq[registry.ProjectEntry]
	Lookup(slug string) (registry.ProjectEntry, error)
	Len() int
}

// Options configures a Manager.
type Options struct {
	// Dir holds one <slug>.yaml per cached project.
	Dir string
	// ConfigFile is the per-project metadata file name.
	ConfigFile string
	IndexCap   int
	Logger     *slog.Logger
	// Now is the clock used to stamp entries; defaults to time.Now.
	Now func() time.Time
}

// Manager owns the cache directory.
type Manager struct {
	reg        Registry
	dir        string
	configFile string
	indexCap   int
	logger     *slog.Logger
	now        func() time.Time
}

// NewManager creates a cache manager over reg.
func NewManager(reg Registry, opts Options) *Manager {
	m := &Manager{
		reg:        reg,
		dir:        opts.Dir,
		configFile: opts.ConfigFile,
		indexCap:   opts.IndexCap,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if m.configFile == "" {
		m.configFile = atlasfile.DefaultFileName
	}
	if m.indexCap <= 0 {
		m.indexCap = DefaultIndexCap
	}
	if m.logger == nil {
		m.logger = slogutil.NewDiscardLogger()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Dir returns the cache directory.
func (m *Manager) Dir() string { return m.dir }

// file maps slug to its cache file. Slugs that are not kebab-case, such as
// hand-edited registry keys, never reach the filesystem.
func (m *Manager) file(slug string) (string, error) {
	if err := registry.ValidateSlug(slug); err != nil {
		return "", err
	}
	path := filepath.Join(m.dir, slug+".yaml")
	if !paths.IsWithin(filepath.Clean(m.dir), path) {
		return "", atlaserrors.NewValidationError("slug",
			fmt.Sprintf("%q escapes the cache directory", slug)).WithSlug(slug)
	}
	return path, nil
}

// Status is the per-project result of a refresh.
type Status string

const (
	StatusRefreshed     Status = "refreshed"
	StatusPathMissing   Status = "path_missing"
	StatusConfigMissing Status = "config_missing"
	StatusInvalid       Status = "invalid"
	StatusFailed        Status = "failed"
)

// Outcome describes what refreshing one project did.
type Outcome struct {
	Slug     string                  `json:"slug"`
	Status   Status                  `json:"status"`
	CachedAt *time.Time              `json:"cachedAt,omitempty"`
	Warning  *atlaserrors.AtlasError `json:"warning,omitempty"`
}

// Refresh re-reads the metadata file of slug and rewrites its cache entry.
// A missing directory or file leaves any existing entry in place and is
// reported in the outcome. Unknown slugs and write failures are errors.
func (m *Manager) Refresh(slug string) (*Outcome, error) {
	entry, err := m.reg.Lookup(slug)
	if err != nil {
		return nil, err
	}
	if _, err := m.file(slug); err != nil {
		return nil, err
	}

	root, err := paths.Normalize(entry.Path)
	if err == nil {
		var info os.FileInfo
		if info, err = os.Stat(root); err == nil && !info.IsDir() {
			err = fmt.Errorf("%s is not a directory", root)
		}
	}
	if err != nil {
		return &Outcome{Slug: slug, Status: StatusPathMissing,
			Warning: atlaserrors.NewPathNotFoundWarning(slug, entry.Path)}, nil
	}

	source := atlasfile.File(root, m.configFile)
	cfg, err := atlasfile.Load(root, m.configFile)
	if errors.Is(err, atlasfile.ErrNotExist) {
		return &Outcome{Slug: slug, Status: StatusConfigMissing,
			Warning: atlaserrors.NewConfigMissingWarning(slug, source)}, nil
	}
	if err != nil {
		return &Outcome{Slug: slug, Status: StatusInvalid,
			Warning: atlaserrors.New(atlaserrors.Validation, fmt.Sprintf("%s: unreadable config", slug), err).WithSlug(slug)}, nil
	}

	out := &Outcome{Slug: slug, Status: StatusRefreshed}
	// An incomplete config is still cached so the index can fall back per field.
	if verr := cfg.Validate(); verr != nil {
		if ae, ok := atlaserrors.AsAtlasError(verr); ok {
			out.Warning = ae.WithSlug(slug)
		}
	}

	cached := &Entry{
		ProjectConfig: *cfg,
		Meta: Meta{
			Source:   source,
			CachedAt: m.now().UTC().Truncate(time.Second),
			Repo:     entry.Repo,
		},
	}
	if err := m.write(slug, cached); err != nil {
		return nil, err
	}
	out.CachedAt = &cached.Meta.CachedAt
	return out, nil
}

func (m *Manager) write(slug string, e *Entry) error {
	data, err := atlasfile.Marshal(e)
	if err != nil {
		return err
	}
	path, err := m.file(slug)
	if err != nil {
		return err
	}
	if err := paths.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache for %s: %w", slug, err)
	}
	return nil
}

// Report aggregates a bulk refresh.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Pruned   []string  `json:"pruned,omitempty"`
}

// Count returns how many outcomes have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Warnings returns every non-nil per-project warning.
func (r *Report) Warnings() []*atlaserrors.AtlasError {
	var out []*atlaserrors.AtlasError
	for _, o := range r.Outcomes {
		if o.Warning != nil {
			out = append(out, o.Warning)
		}
	}
	return out
}

// RefreshAll refreshes every registered project, continuing past failures,
// then prunes entries for slugs that are no longer registered.
func (m *Manager) RefreshAll() *Report {
	report := &Report{}
	for entry := range m.reg.All() {
		out, err := m.Refresh(entry.Slug)
		if err != nil {
			ae, ok := atlaserrors.AsAtlasError(err)
			if !ok {
				ae = atlaserrors.New(atlaserrors.InternalError, "refresh failed", err)
			}
			out = &Outcome{Slug: entry.Slug, Status: StatusFailed, Warning: ae.WithSlug(entry.Slug)}
		}
		if out.Warning != nil {
			m.logger.Warn(out.Warning.Message, "slug", out.Slug, "status", string(out.Status))
		} else {
			m.logger.Debug("Refreshed cache", "slug", out.Slug)
		}
		report.Outcomes = append(report.Outcomes, *out)
	}

	pruned, err := m.Prune()
	if err != nil {
		m.logger.Warn("Failed to prune cache", "error", err.Error())
	}
	report.Pruned = pruned
	return report
}

// Load returns the cached entry for slug, or nil when there is none.
func (m *Manager) Load(slug string) (*Entry, error) {
	path, err := m.file(slug)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache for %s: %w", slug, err)
	}
	var e Entry
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse cache for %s: %w", slug, err)
	}
	return &e, nil
}

// loadQuiet is Load for rendering paths, where a damaged entry counts as uncached.
func (m *Manager) loadQuiet(slug string) *Entry {
	e, err := m.Load(slug)
	if err != nil {
		m.logger.Warn("Ignoring unreadable cache entry", "slug", slug, "error", err.Error())
		return nil
	}
	return e
}

// Delete removes the cache entry for slug. A missing entry is not an error.
func (m *Manager) Delete(slug string) error {
	path, err := m.file(slug)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cache for %s: %w", slug, err)
	}
	return nil
}

// Prune removes cache entries whose slug is no longer registered and returns
// the removed slugs in sorted order.
func (m *Manager) Prune() ([]string, error) {
	dirEntries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	registered := make(map[string]bool)
	for e := range m.reg.All() {
		registered[e.Slug] = true
	}

	var pruned []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".yaml" {
			continue
		}
		slug := strings.TrimSuffix(name, ".yaml")
		if registered[slug] {
			continue
		}
		// name comes from the directory listing, so it is removed as-is even
		// when it is not a valid slug.
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pruned, fmt.Errorf("failed to remove cache for %s: %w", slug, err)
		}
		pruned = append(pruned, slug)
	}
	slices.Sort(pruned)
	return pruned, nil
}
