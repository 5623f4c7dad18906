package cache

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"atlas/internal/atlasfile"
	atlaserrors "atlas/internal/errors"
	"atlas/internal/registry"
)

func TestRenderIndex_FallbackAndMarker(t *testing.T) {
	f := newFixture(t, 0)
	f.project("web-sdk", simpleConfig("Web SDK", "Browser SDK"))
	f.project("collector", "")
	f.project("nosum", "name: Nameless\n")
	f.mgr.RefreshAll()

	got := f.mgr.RenderIndex("web-sdk")
	want := []string{
		"* web-sdk: Browser SDK",
		"  collector (no summary)",
		"  nosum (no summary)",
	}
	if !slices.Equal(got, want) {
		t.Errorf("RenderIndex =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestRenderIndex_OneLinePerProject(t *testing.T) {
	f := newFixture(t, 0)
	f.project("web-sdk", "name: Web SDK\nsummary: \"first line\\nsecond line\"\n")
	f.project("collector", "name: Collector\nsummary: "+strings.Repeat("ingests events ", 10)+"\n")
	f.mgr.RefreshAll()

	got := f.mgr.RenderIndex("")
	if len(got) != 2 {
		t.Fatalf("got %d lines for 2 projects: %q", len(got), got)
	}
	if got[0] != "  web-sdk: first line second line" {
		t.Errorf("multi-line summary = %q", got[0])
	}
	for _, line := range got {
		if strings.ContainsAny(line, "\r\n") {
			t.Errorf("line spans rows: %q", line)
		}
	}
	summary := strings.TrimPrefix(got[1], "  collector: ")
	if n := utf8.RuneCountInString(summary); n > atlasfile.MaxSummaryLen || !strings.HasSuffix(summary, "...") {
		t.Errorf("long summary not capped (%d runes): %q", n, summary)
	}
}

func TestRenderIndex_Empty(t *testing.T) {
	f := newFixture(t, 0)
	if got := f.mgr.RenderIndex(""); len(got) != 0 {
		t.Errorf("expected no lines, got %v", got)
	}
}

func TestRenderIndex_Cap(t *testing.T) {
	f := newFixture(t, 2)
	for _, slug := range []string{"a", "b", "c", "d"} {
		f.project(slug, simpleConfig(strings.ToUpper(slug), "project "+slug))
	}
	// Refresh in an order unrelated to registration; the clock advances each time.
	for _, slug := range []string{"a", "d", "b", "c"} {
		if _, err := f.mgr.Refresh(slug); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("most recent in registration order", func(t *testing.T) {
		got := f.mgr.RenderIndex("")
		want := []string{"  b: project b", "  c: project c", "… and 2 more"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("current project always shown", func(t *testing.T) {
		got := f.mgr.RenderIndex("a")
		want := []string{"* a: project a", "  c: project c", "… and 2 more"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("current already in window", func(t *testing.T) {
		got := f.mgr.RenderIndex("c")
		want := []string{"  b: project b", "* c: project c", "… and 2 more"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestRenderIndex_AtCapShowsAll(t *testing.T) {
	f := newFixture(t, 2)
	f.project("a", simpleConfig("A", "one"))
	f.project("b", "")
	f.mgr.RefreshAll()

	got := f.mgr.RenderIndex("")
	if len(got) != 2 || strings.Contains(strings.Join(got, "\n"), "more") {
		t.Errorf("got %v", got)
	}
}

func TestRenderDetail_RoundTrip(t *testing.T) {
	f := newFixture(t, 0)
	config := `name: Web SDK
summary: Browser SDK for event capture
group: frontend
tags: [typescript, sdk]
links:
  repo: https://github.com/acme/web-sdk
  ci: https://ci.acme.dev/web-sdk
docs:
  context7: /acme/web-sdk
notes: |
  Release from main only.
  Coordinate major bumps.
metadata:
  tier: "1"
  owner: web-team
`
	f.project("web-sdk", config)
	if _, err := f.mgr.Refresh("web-sdk"); err != nil {
		t.Fatal(err)
	}

	detail, err := f.mgr.RenderDetail("web-sdk")
	if err != nil {
		t.Fatalf("RenderDetail: %v", err)
	}

	cfg, err := atlasfile.Parse([]byte(config))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{cfg.Name, cfg.Summary, cfg.Group, "typescript, sdk",
		"Links:\n  repo: https://github.com/acme/web-sdk\n  ci: https://ci.acme.dev/web-sdk\n",
		"Docs:\n  context7: /acme/web-sdk\n",
		"Notes:\n  Release from main only.\n  Coordinate major bumps.\n",
		"Metadata:\n  owner: web-team\n  tier: 1\n",
	}
	for _, w := range want {
		if !strings.Contains(detail, w) {
			t.Errorf("detail missing %q:\n%s", w, detail)
		}
	}
}

func TestRenderDetail_OmitsEmptySections(t *testing.T) {
	f := newFixture(t, 0)
	f.project("tiny", simpleConfig("Tiny", "Small thing"))
	if _, err := f.mgr.Refresh("tiny"); err != nil {
		t.Fatal(err)
	}

	detail, err := f.mgr.RenderDetail("tiny")
	if err != nil {
		t.Fatal(err)
	}
	for _, absent := range []string{"Links:", "Docs:", "Notes:", "Metadata:", "Tags:", "Group:", "Repo:", "Also:"} {
		if strings.Contains(detail, absent) {
			t.Errorf("detail should omit %q:\n%s", absent, detail)
		}
	}
	if !strings.HasPrefix(detail, "# Tiny (tiny)\nSmall thing\n") {
		t.Errorf("unexpected header:\n%s", detail)
	}
}

func TestRenderDetail_Uncached(t *testing.T) {
	f := newFixture(t, 0)
	f.project("collector", "")

	detail, err := f.mgr.RenderDetail("collector")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(detail, "no atlas config cached") {
		t.Errorf("detail = %s", detail)
	}
	if _, err := f.mgr.RenderDetail("ghost"); !atlaserrors.HasCode(err, atlaserrors.NotFound) {
		t.Errorf("unknown slug error = %v", err)
	}
}

func TestFormatDetail_RegistryFields(t *testing.T) {
	p := registry.ProjectEntry{Slug: "svc", Path: "~/dev/svc", Repo: "git@x:svc.git", AdditionalPaths: []string{"~/dev/svc-docs"}}
	out := FormatDetail(p, &Entry{ProjectConfig: atlasfile.ProjectConfig{Name: "svc", Summary: "s"}})
	for _, w := range []string{"# svc\n", "Path: ~/dev/svc", "Also: ~/dev/svc-docs", "Repo: git@x:svc.git"} {
		if !strings.Contains(out, w) {
			t.Errorf("missing %q in:\n%s", w, out)
		}
	}
}
