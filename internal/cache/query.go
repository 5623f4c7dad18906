package cache

import (
	"strings"

	atlaserrors "atlas/internal/errors"
	"atlas/internal/registry"
)

// Filter narrows a query. Zero fields match everything; all set fields must
// match. Comparisons ignore case.
type Filter struct {
	Group string `json:"group,omitempty"`
	Tag   string `json:"tag,omitempty"`
	// Query is a substring matched against slug, name and summary.
	Query string `json:"query,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Group == "" && f.Tag == "" && f.Query == ""
}

// Match applies the filter to a project and its cache entry, which may be nil.
// Group and tag filters never match an uncached project.
func (f Filter) Match(slug string, e *Entry) bool {
	if f.Group != "" && (e == nil || !strings.EqualFold(e.Group, f.Group)) {
		return false
	}
	if f.Tag != "" && (e == nil || !e.HasTag(f.Tag)) {
		return false
	}
	if f.Query != "" {
		haystack := slug
		if e != nil {
			haystack += " " + e.Name + " " + e.Summary
		}
		if !strings.Contains(strings.ToLower(haystack), strings.ToLower(f.Query)) {
			return false
		}
	}
	return true
}

// Item is a registered project joined with its cache entry.
type Item struct {
	Project registry.ProjectEntry `json:"project"`
	Cached  *Entry                `json:"cached,omitempty"`
}

// QueryResult holds matching items in registration order.
type QueryResult struct {
	Items      []Item `json:"items"`
	Registered int    `json:"registered"`
	Cached     int    `json:"cached"`
	// Hint is set when the cache covers less than half of the registry, so
	// an empty or short result may only mean nothing was refreshed.
	Hint *atlaserrors.AtlasError `json:"hint,omitempty"`
}

// Query joins the registry with the cache and filters the result.
func (m *Manager) Query(f Filter) *QueryResult {
	res := &QueryResult{Items: []Item{}}
	for p := range m.reg.All() {
		res.Registered++
		e := m.loadQuiet(p.Slug)
		if e != nil {
			res.Cached++
		}
		if f.Match(p.Slug, e) {
			res.Items = append(res.Items, Item{Project: p, Cached: e})
		}
	}
	if res.Registered > 0 && res.Cached*2 < res.Registered {
		res.Hint = atlaserrors.NewStaleCacheHint(res.Cached, res.Registered)
	}
	return res
}
