package registry

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	atlaserrors "atlas/internal/errors"
)

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "atlas", false},
		{"with digits", "web2", false},
		{"kebab", "web-sdk", false},
		{"multi segment", "data-collector-v2", false},
		{"empty", "", true},
		{"uppercase", "WebSDK", true},
		{"underscore", "web_sdk", true},
		{"leading hyphen", "-web", true},
		{"trailing hyphen", "web-", true},
		{"double hyphen", "web--sdk", true},
		{"space", "web sdk", true},
		{"slash", "web/sdk", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlug(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !atlaserrors.HasCode(err, atlaserrors.Validation) {
				t.Errorf("expected VALIDATION code, got %v", err)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"web-sdk":        "web-sdk",
		"My_Project":     "my-project",
		"  spaced out  ": "spaced-out",
		"Foo.Bar--Baz":   "foo-bar-baz",
		"___":            "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "registry.yaml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", s.Len())
	}
	if _, ok := s.Get("anything"); ok {
		t.Error("Get on empty registry should miss")
	}
	if _, err := s.Lookup("anything"); !atlaserrors.HasCode(err, atlaserrors.NotFound) {
		t.Errorf("Lookup error = %v, want NOT_FOUND", err)
	}
}

func TestStore_UpsertPersistsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range []ProjectEntry{
		{Slug: "zeta", Path: "/work/zeta"},
		{Slug: "alpha", Path: "/work/alpha", Repo: "https://github.com/acme/alpha"},
		{Slug: "mid", Path: "/work/mid", AdditionalPaths: []string{"/srv/mid", "/srv/mid", "/work/mid"}},
	} {
		if _, err := s.Upsert(e); err != nil {
			t.Fatalf("Upsert(%s): %v", e.Slug, err)
		}
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, want := reopened.Slugs(), []string{"zeta", "alpha", "mid"}; !slices.Equal(got, want) {
		t.Errorf("Slugs() = %v, want %v", got, want)
	}

	alpha, _ := reopened.Get("alpha")
	if alpha.Repo != "https://github.com/acme/alpha" {
		t.Errorf("alpha.Repo = %q", alpha.Repo)
	}
	mid, _ := reopened.Get("mid")
	if !slices.Equal(mid.AdditionalPaths, []string{"/srv/mid"}) {
		t.Errorf("additional paths should be deduplicated, got %v", mid.AdditionalPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "projects:\n    zeta:") {
		t.Errorf("unexpected file layout:\n%s", data)
	}
}

func TestStore_UpsertWarnsOnChangedLocation(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "registry.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if w, err := s.Upsert(ProjectEntry{Slug: "web-sdk", Path: "/work/web"}); err != nil || w != nil {
		t.Fatalf("first upsert: warning=%v err=%v", w, err)
	}
	if w, err := s.Upsert(ProjectEntry{Slug: "web-sdk", Path: "/work/web"}); err != nil || w != nil {
		t.Fatalf("identical upsert should not warn: warning=%v err=%v", w, err)
	}

	w, err := s.Upsert(ProjectEntry{Slug: "web-sdk", Path: "/work/web-sdk"})
	if err != nil {
		t.Fatal(err)
	}
	if w == nil {
		t.Fatal("expected warning when path changes")
	}
	if w.Previous.Path != "/work/web" || !strings.Contains(w.String(), "/work/web -> /work/web-sdk") {
		t.Errorf("unexpected warning: %s", w)
	}
	got, _ := s.Get("web-sdk")
	if got.Path != "/work/web-sdk" {
		t.Errorf("upsert should overwrite, path = %q", got.Path)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_UpsertValidation(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "registry.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(ProjectEntry{Slug: "Bad Slug", Path: "/x"}); !atlaserrors.HasCode(err, atlaserrors.Validation) {
		t.Errorf("bad slug error = %v", err)
	}
	if _, err := s.Upsert(ProjectEntry{Slug: "ok", Path: "  "}); !atlaserrors.HasCode(err, atlaserrors.Validation) {
		t.Errorf("empty path error = %v", err)
	}
	if _, statErr := os.Stat(s.Path()); !os.IsNotExist(statErr) {
		t.Error("failed upserts must not create the registry file")
	}
}

func TestStore_Remove(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "registry.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, slug := range []string{"a", "b", "c"} {
		if _, err := s.Upsert(ProjectEntry{Slug: slug, Path: "/work/" + slug}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Remove("b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := s.Slugs(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Slugs() = %v", got)
	}
	if err := s.Remove("b"); !atlaserrors.HasCode(err, atlaserrors.NotFound) {
		t.Errorf("second Remove error = %v, want NOT_FOUND", err)
	}
}

func TestStore_MutationSeesExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	first, _ := Open(path)
	second, _ := Open(path)

	if _, err := first.Upsert(ProjectEntry{Slug: "one", Path: "/work/one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := second.Upsert(ProjectEntry{Slug: "two", Path: "/work/two"}); err != nil {
		t.Fatal(err)
	}

	if got := second.Slugs(); !slices.Equal(got, []string{"one", "two"}) {
		t.Errorf("second store lost the first write: %v", got)
	}
}

func TestStore_LoadHandEditedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	content := `projects:
  web-sdk:
    path: ~/dev/web-sdk
    repo: git@github.com:acme/web-sdk.git
  collector:
    path: /srv/collector
    additional_paths:
      - /opt/collector
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Slugs(); !slices.Equal(got, []string{"web-sdk", "collector"}) {
		t.Errorf("Slugs() = %v", got)
	}
	cands, err := s.CandidatePaths("collector")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cands, []string{"/srv/collector", "/opt/collector"}) {
		t.Errorf("CandidatePaths = %v", cands)
	}
}

func TestStore_LoadSkipsInvalidSlugs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	content := `projects:
  ../../escaped:
    path: /tmp/escaped
  ok:
    path: /srv/ok
  Bad_Slug:
    path: /srv/bad
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Slugs(); !slices.Equal(got, []string{"ok"}) {
		t.Errorf("Slugs() = %v", got)
	}
	if got := s.Invalid(); !slices.Equal(got, []string{"../../escaped", "Bad_Slug"}) {
		t.Errorf("Invalid() = %v", got)
	}
	if _, err := s.Lookup("../../escaped"); !atlaserrors.HasCode(err, atlaserrors.NotFound) {
		t.Errorf("Lookup of invalid key = %v, want NOT_FOUND", err)
	}

	if _, err := s.Upsert(ProjectEntry{Slug: "next", Path: "/srv/next"}); err != nil {
		t.Fatal(err)
	}
	if len(s.Invalid()) != 0 {
		t.Errorf("Invalid() after write = %v", s.Invalid())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "escaped") {
		t.Errorf("invalid key survived the rewrite:\n%s", data)
	}
}

func TestStore_LoadNullProjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(path, []byte("projects:\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
}

func TestStore_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(path, []byte("projects:\n  - not\n  - a map\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for a projects list")
	}
}

func TestStore_ResolveProjectFile(t *testing.T) {
	root := t.TempDir()
	projDir := filepath.Join(root, "proj")
	if err := os.MkdirAll(filepath.Join(projDir, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	s, err := Open(filepath.Join(root, "registry.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(ProjectEntry{Slug: "proj", Path: projDir}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ResolveProjectFile("proj", "docs/arch.md")
	if err != nil {
		t.Fatalf("ResolveProjectFile: %v", err)
	}
	if filepath.Base(got) != "arch.md" || !strings.Contains(got, "proj") {
		t.Errorf("unexpected path %q", got)
	}

	if _, err := s.ResolveProjectFile("proj", "../outside.txt"); !atlaserrors.HasCode(err, atlaserrors.Validation) {
		t.Errorf("escape error = %v, want VALIDATION", err)
	}
	if _, err := s.ResolveProjectFile("proj", "/etc/passwd"); !atlaserrors.HasCode(err, atlaserrors.Validation) {
		t.Errorf("absolute error = %v, want VALIDATION", err)
	}
	if _, err := s.ResolveProjectFile("nope", "x"); !atlaserrors.HasCode(err, atlaserrors.NotFound) {
		t.Errorf("unknown slug error = %v, want NOT_FOUND", err)
	}

	if err := os.RemoveAll(projDir); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ResolveProjectFile("proj", "docs/arch.md"); !atlaserrors.HasCode(err, atlaserrors.PathNotFound) {
		t.Errorf("missing root error = %v, want PATH_NOT_FOUND", err)
	}
}
