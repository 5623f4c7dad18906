package cache

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"atlas/internal/atlasfile"
	"atlas/internal/registry"
)

const (
	currentMarker = "* "
	otherMarker   = "  "
)

// IndexLine renders one project for the session index.
func IndexLine(slug string, e *Entry, current bool) string {
	marker := otherMarker
	if current {
		marker = currentMarker
	}
	// Cached configs may be incomplete, so the summary is folded here too.
	summary := ""
	if e != nil {
		summary = atlasfile.FoldSummary(e.Summary)
	}
	if summary == "" {
		return marker + slug + " (no summary)"
	}
	return marker + slug + ": " + summary
}

type indexRow struct {
	pos      int
	slug     string
	entry    *Entry
	cachedAt time.Time
}

// RenderIndex returns one line per registered project in registration order.
// Past the index cap, only the most recently refreshed projects are listed,
// followed by a count of the rest. currentSlug, when registered, is always
// listed and marked.
func (m *Manager) RenderIndex(currentSlug string) []string {
	var rows []indexRow
	for e := range m.reg.All() {
		row := indexRow{pos: len(rows), slug: e.Slug, entry: m.loadQuiet(e.Slug)}
		if row.entry != nil {
			row.cachedAt = row.entry.Meta.CachedAt
		}
		rows = append(rows, row)
	}

	shown := rows
	if len(rows) > m.indexCap {
		shown = m.mostRecent(rows, currentSlug)
	}

	lines := make([]string, 0, len(shown)+1)
	for _, r := range shown {
		lines = append(lines, IndexLine(r.slug, r.entry, r.slug == currentSlug))
	}
	if hidden := len(rows) - len(shown); hidden > 0 {
		lines = append(lines, fmt.Sprintf("… and %d more", hidden))
	}
	return lines
}

// mostRecent keeps the indexCap rows with the newest cache stamps, with the
// current project forced in, and restores registration order.
func (m *Manager) mostRecent(rows []indexRow, currentSlug string) []indexRow {
	byAge := slices.Clone(rows)
	slices.SortStableFunc(byAge, func(a, b indexRow) int {
		return b.cachedAt.Compare(a.cachedAt)
	})
	keep := byAge[:m.indexCap]

	if currentSlug != "" && !slices.ContainsFunc(keep, func(r indexRow) bool { return r.slug == currentSlug }) {
		if i := slices.IndexFunc(byAge, func(r indexRow) bool { return r.slug == currentSlug }); i >= 0 {
			keep[len(keep)-1] = byAge[i]
		}
	}

	slices.SortFunc(keep, func(a, b indexRow) int { return a.pos - b.pos })
	return keep
}

// RenderDetail returns the full view of slug. Empty fields and sections are
// omitted.
func (m *Manager) RenderDetail(slug string) (string, error) {
	entry, err := m.reg.Lookup(slug)
	if err != nil {
		return "", err
	}
	cached, err := m.Load(slug)
	if err != nil {
		return "", err
	}
	return FormatDetail(entry, cached), nil
}

// FormatDetail renders a registry entry joined with its cache entry, which
// may be nil.
func FormatDetail(p registry.ProjectEntry, e *Entry) string {
	var b strings.Builder

	title := p.Slug
	if e != nil && e.Name != "" && e.Name != p.Slug {
		title = fmt.Sprintf("%s (%s)", e.Name, p.Slug)
	}
	b.WriteString("# " + title + "\n")
	if e != nil && e.Summary != "" {
		b.WriteString(e.Summary + "\n")
	}

	var fields []string
	field := func(label, value string) {
		if value != "" {
			fields = append(fields, fmt.Sprintf("%s: %s", label, value))
		}
	}
	field("Path", p.Path)
	if len(p.AdditionalPaths) > 0 {
		field("Also", strings.Join(p.AdditionalPaths, ", "))
	}
	field("Repo", p.Repo)
	if e != nil {
		field("Group", e.Group)
		if len(e.Tags) > 0 {
			field("Tags", strings.Join(e.Tags, ", "))
		}
	}
	b.WriteString("\n" + strings.Join(fields, "\n") + "\n")

	if e == nil {
		b.WriteString("\n(no atlas config cached; run `atlas refresh " + p.Slug + "`)\n")
		return b.String()
	}

	section := func(heading string, body []string) {
		if len(body) == 0 {
			return
		}
		b.WriteString("\n" + heading + ":\n")
		for _, line := range body {
			b.WriteString("  " + line + "\n")
		}
	}

	var links, docs, meta []string
	for _, l := range e.Links {
		links = append(links, l.Key+": "+l.Value)
	}
	for _, d := range e.Docs {
		docs = append(docs, d.Key+": "+d.Value)
	}
	for _, k := range slices.Sorted(maps.Keys(e.Metadata)) {
		meta = append(meta, k+": "+e.Metadata[k])
	}
	section("Links", links)
	section("Docs", docs)
	if notes := strings.TrimRight(e.Notes, "\n"); notes != "" {
		section("Notes", strings.Split(notes, "\n"))
	}
	section("Metadata", meta)

	if !e.Meta.CachedAt.IsZero() {
		b.WriteString("\nCached: " + e.Meta.CachedAt.Format(time.RFC3339) + "\n")
	}
	return b.String()
}
