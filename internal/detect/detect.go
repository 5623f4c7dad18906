// Package detect guesses project metadata from the files already in a
// repository: build manifests, the README, and the git remote.
//
// Each detector reads only under the root it is given and returns nil when it
// has nothing to say. Run composes them in priority order.
package detect

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"atlas/internal/atlasfile"
)

// Partial is whatever a detector could infer. Empty fields are unknown.
type Partial struct {
	Name     string               `json:"name,omitempty"`
	Summary  string               `json:"summary,omitempty"`
	Group    string               `json:"group,omitempty"`
	Tags     []string             `json:"tags,omitempty"`
	Links    atlasfile.OrderedMap `json:"links,omitempty"`
	Repo     string               `json:"repo,omitempty"`
	Metadata map[string]string    `json:"metadata,omitempty"`
}

// Detector inspects a project root.
type Detector struct {
	Name   string
	Detect func(root string) (*Partial, error)
}

// Default returns the built-in detectors, highest priority first.
func Default() []Detector {
	return []Detector{
		{Name: "go.mod", Detect: GoMod},
		{Name: "package.json", Detect: PackageJSON},
		{Name: "Cargo.toml", Detect: Cargo},
		{Name: "pyproject.toml", Detect: Pyproject},
		{Name: "readme", Detect: Readme},
		{Name: "git", Detect: GitRemote},
	}
}

// Run applies detectors in order and merges their results: the first
// non-empty value wins for each scalar, link and metadata key, and tags are
// unioned. A failing detector is skipped; its error is joined into the
// returned error alongside a still-usable result.
func Run(root string, detectors ...Detector) (*Partial, error) {
	merged := &Partial{}
	var errs []error
	for _, d := range detectors {
		p, err := d.Detect(root)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
			continue
		}
		if p != nil {
			merged.merge(p)
		}
	}
	return merged, errors.Join(errs...)
}

func (p *Partial) merge(other *Partial) {
	p.Name = firstNonEmpty(p.Name, other.Name)
	p.Summary = firstNonEmpty(p.Summary, other.Summary)
	p.Group = firstNonEmpty(p.Group, other.Group)
	p.Repo = firstNonEmpty(p.Repo, other.Repo)
	p.Tags = unionTags(p.Tags, other.Tags)
	for _, l := range other.Links {
		if _, ok := p.Links.Get(l.Key); !ok {
			p.Links.Set(l.Key, l.Value)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(other.Metadata)) {
		if _, ok := p.Metadata[k]; ok {
			continue
		}
		if p.Metadata == nil {
			p.Metadata = make(map[string]string)
		}
		p.Metadata[k] = other.Metadata[k]
	}
}

// Fill sets the empty fields of cfg from the partial and unions tags.
func (p *Partial) Fill(cfg *atlasfile.ProjectConfig) {
	cfg.Name = firstNonEmpty(cfg.Name, p.Name)
	cfg.Summary = firstNonEmpty(cfg.Summary, p.Summary)
	cfg.Group = firstNonEmpty(cfg.Group, p.Group)
	cfg.AddTags(p.Tags...)
	for _, l := range p.Links {
		if _, ok := cfg.Links.Get(l.Key); !ok {
			cfg.Links.Set(l.Key, l.Value)
		}
	}
	for k, v := range p.Metadata {
		if _, ok := cfg.Metadata[k]; ok {
			continue
		}
		if cfg.Metadata == nil {
			cfg.Metadata = make(map[string]string)
		}
		cfg.Metadata[k] = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func unionTags(have, add []string) []string {
	for _, t := range add {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !slices.ContainsFunc(have, func(h string) bool { return strings.EqualFold(h, t) }) {
			have = append(have, t)
		}
	}
	return have
}
