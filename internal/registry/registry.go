// Package registry owns the machine-local mapping of project slugs to
// filesystem locations, and resolves paths to the project that contains them.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	atlaserrors "atlas/internal/errors"
	"atlas/internal/paths"
)

// ProjectEntry represents a registered project.
type ProjectEntry struct {
	Slug            string   `yaml:"-" json:"slug"`
	Path            string   `yaml:"path" json:"path"`
	Repo            string   `yaml:"repo,omitempty" json:"repo,omitempty"`
	AdditionalPaths []string `yaml:"additional_paths,omitempty" json:"additionalPaths,omitempty"`
}

// Candidates returns the entry's path followed by its additional paths.
func (e ProjectEntry) Candidates() []string {
	out := make([]string, 0, 1+len(e.AdditionalPaths))
	out = append(out, e.Path)
	return append(out, e.AdditionalPaths...)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateSlug checks that slug is lowercase kebab-case.
func ValidateSlug(slug string) error {
	if slug == "" {
		return atlaserrors.NewValidationError("slug", "cannot be empty")
	}
	if !slugPattern.MatchString(slug) {
		return atlaserrors.NewValidationError("slug",
			fmt.Sprintf("%q must be lowercase kebab-case (letters, digits, single hyphens)", slug))
	}
	return nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a slug from a directory or project name.
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// UpsertWarning reports that an upsert replaced an entry whose location differed.
type UpsertWarning struct {
	Slug     string
	Previous ProjectEntry
	Current  ProjectEntry
}

func (w *UpsertWarning) String() string {
	var changes []string
	if w.Previous.Path != w.Current.Path {
		changes = append(changes, fmt.Sprintf("path %s -> %s", w.Previous.Path, w.Current.Path))
	}
	if w.Previous.Repo != w.Current.Repo {
		changes = append(changes, fmt.Sprintf("repo %s -> %s", w.Previous.Repo, w.Current.Repo))
	}
	return fmt.Sprintf("%s was already registered; %s", w.Slug, strings.Join(changes, ", "))
}

// Store is the registry file. Every mutation re-reads the file, applies the
// change, and atomically replaces it, so concurrent writers resolve by last
// write wins and a crash never leaves a truncated file.
type Store struct {
	path    string
	entries []ProjectEntry
	invalid []string
}

// Open loads the registry at path. A missing file is an empty registry.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the registry file location.
func (s *Store) Path() string { return s.path }

// Reload re-reads the registry from disk.
func (s *Store) Reload() error {
	list, err := readFile(s.path)
	if err != nil {
		return err
	}
	s.entries = list.entries
	s.invalid = list.invalid
	return nil
}

// Invalid returns registry keys skipped on the last read because they are
// not valid slugs. The next write drops them from the file.
func (s *Store) Invalid() []string { return s.invalid }

// All yields every entry in registration order.
func (s *Store) All() iter.Seq[ProjectEntry] {
	return func(yield func(ProjectEntry) bool) {
		for _, e := range s.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of registered projects.
func (s *Store) Len() int { return len(s.entries) }

// Slugs returns all slugs in registration order.
func (s *Store) Slugs() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Slug
	}
	return out
}

// Get returns the entry for slug.
func (s *Store) Get(slug string) (ProjectEntry, bool) {
	i := indexOf(s.entries, slug)
	if i < 0 {
		return ProjectEntry{}, false
	}
	return s.entries[i], true
}

// Lookup is Get with a NOT_FOUND error.
func (s *Store) Lookup(slug string) (ProjectEntry, error) {
	e, ok := s.Get(slug)
	if !ok {
		return ProjectEntry{}, atlaserrors.NewNotFoundError(slug)
	}
	return e, nil
}

// Upsert inserts or replaces entry. Replacing an entry with a different
// path or repo returns a warning; the write still happens.
func (s *Store) Upsert(entry ProjectEntry) (*UpsertWarning, error) {
	if err := ValidateSlug(entry.Slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(entry.Path) == "" {
		return nil, atlaserrors.NewValidationError("path", "cannot be empty").WithSlug(entry.Slug)
	}
	entry.AdditionalPaths = dedupe(entry.AdditionalPaths, entry.Path)

	var warning *UpsertWarning
	err := s.update(func(entries []ProjectEntry) ([]ProjectEntry, error) {
		i := indexOf(entries, entry.Slug)
		if i < 0 {
			return append(entries, entry), nil
		}
		prev := entries[i]
		if prev.Path != entry.Path || prev.Repo != entry.Repo {
			warning = &UpsertWarning{Slug: entry.Slug, Previous: prev, Current: entry}
		}
		entries[i] = entry
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return warning, nil
}

// Remove unregisters slug. The project's own files are never touched.
func (s *Store) Remove(slug string) error {
	return s.update(func(entries []ProjectEntry) ([]ProjectEntry, error) {
		i := indexOf(entries, slug)
		if i < 0 {
			return nil, atlaserrors.NewNotFoundError(slug)
		}
		return slices.Delete(entries, i, i+1), nil
	})
}

// CandidatePaths returns [path] ∪ additionalPaths for slug.
func (s *Store) CandidatePaths(slug string) ([]string, error) {
	e, err := s.Lookup(slug)
	if err != nil {
		return nil, err
	}
	return e.Candidates(), nil
}

// ProjectRoot returns the normalized root of slug.
func (s *Store) ProjectRoot(slug string) (string, error) {
	e, err := s.Lookup(slug)
	if err != nil {
		return "", err
	}
	return paths.Normalize(e.Path)
}

// ResolveProjectFile joins rel under the project root of slug and rejects
// results that escape the root.
func (s *Store) ResolveProjectFile(slug, rel string) (string, error) {
	root, err := s.ProjectRoot(slug)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", atlaserrors.NewPathNotFoundWarning(slug, root)
	}
	if filepath.IsAbs(rel) {
		return "", atlaserrors.NewValidationError("path", fmt.Sprintf("%q must be relative to the project root", rel)).WithSlug(slug)
	}
	target, err := paths.Normalize(filepath.Join(root, rel))
	if err != nil {
		return "", err
	}
	if !paths.IsWithin(root, target) {
		return "", atlaserrors.NewValidationError("path",
			fmt.Sprintf("%q escapes the project boundary of %s", rel, slug)).WithSlug(slug)
	}
	return target, nil
}

// update performs one read-modify-write cycle against the file on disk.
func (s *Store) update(mutate func([]ProjectEntry) ([]ProjectEntry, error)) error {
	current, err := readFile(s.path)
	if err != nil {
		return err
	}
	next, err := mutate(current.entries)
	if err != nil {
		return err
	}
	if err := writeFile(s.path, next); err != nil {
		return err
	}
	s.entries = next
	s.invalid = nil
	return nil
}

func indexOf(entries []ProjectEntry, slug string) int {
	return slices.IndexFunc(entries, func(e ProjectEntry) bool { return e.Slug == slug })
}

func dedupe(list []string, exclude string) []string {
	var out []string
	for _, p := range list {
		p = strings.TrimSpace(p)
		if p == "" || p == exclude || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// document is the on-disk shape of registry.yaml.
type document struct {
	Projects projectList `yaml:"projects"`
}

// projectList decodes the projects mapping in file order. Keys that are not
// valid slugs are set aside in invalid rather than loaded.
type projectList struct {
	entries []ProjectEntry
	invalid []string
}

func (l *projectList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		*l = projectList{}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: projects must be a mapping of slug to entry", node.Line)
	}
	var out []ProjectEntry
	var invalid []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if ValidateSlug(key.Value) != nil {
			invalid = append(invalid, key.Value)
			continue
		}
		var e ProjectEntry
		if err := value.Decode(&e); err != nil {
			return fmt.Errorf("project %s: %w", key.Value, err)
		}
		e.Slug = key.Value
		if j := indexOf(out, e.Slug); j >= 0 {
			out[j] = e
			continue
		}
		out = append(out, e)
	}
	*l = projectList{entries: out, invalid: invalid}
	return nil
}

func (l projectList) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range l.entries {
		var value yaml.Node
		if err := value.Encode(e); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Slug},
			&value,
		)
	}
	return node, nil
}

func readFile(path string) (projectList, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return projectList{}, nil
	}
	if err != nil {
		return projectList{}, fmt.Errorf("failed to read registry: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return projectList{}, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return doc.Projects, nil
}

func writeFile(path string, entries []ProjectEntry) error {
	data, err := yaml.Marshal(document{Projects: projectList{entries: entries}})
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := paths.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}
