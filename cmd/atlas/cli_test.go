package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the root command against an isolated atlas home.
func runCLI(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--atlas-home", home, "--quiet"}, args...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_AddListWhich(t *testing.T) {
	t.Setenv("ATLAS_PROJECT", "")
	base := t.TempDir()
	home := filepath.Join(base, "atlas")
	web := filepath.Join(base, "dev", "web-sdk")
	collector := filepath.Join(base, "dev", "collector")
	for _, dir := range []string{web, collector} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := runCLI(t, home, "add", web, "--summary", "Browser SDK", "--no-detect"); err != nil {
		t.Fatalf("add web-sdk: %v", err)
	}
	if _, err := runCLI(t, home, "add", collector, "--summary", "", "--no-detect"); err != nil {
		t.Fatalf("add collector: %v", err)
	}

	out, err := runCLI(t, home, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var res struct {
		Items []struct {
			Project struct {
				Slug string `json:"slug"`
			} `json:"project"`
			Cached *struct {
				Summary string `json:"summary"`
			} `json:"cached"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(res.Items) != 2 || res.Items[0].Project.Slug != "web-sdk" || res.Items[0].Cached.Summary != "Browser SDK" ||
		res.Items[1].Project.Slug != "collector" || res.Items[1].Cached != nil {
		t.Errorf("list = %s", out)
	}

	out, err = runCLI(t, home, "which", filepath.Join(web, "."), "--json=false")
	if err != nil {
		t.Fatalf("which: %v", err)
	}
	if !strings.HasPrefix(out, "web-sdk (exact match") {
		t.Errorf("which = %q", out)
	}

	out, err = runCLI(t, home, "index", "--cwd", collector)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if out != "  web-sdk: Browser SDK\n* collector (no summary)\n" {
		t.Errorf("index = %q", out)
	}

	if _, err := runCLI(t, home, "which", base); err == nil {
		t.Error("which outside any project should fail")
	}
}

func TestCLI_Commands(t *testing.T) {
	for _, name := range []string{"list", "add", "show", "edit", "remove", "rm", "link", "refresh", "which", "index", "providers", "watch", "mcp", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}
