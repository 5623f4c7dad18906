// Package testutil provides golden-file helpers for rendered output.
package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden rewrites golden files instead of comparing.
// Use: go test ./internal/cache -run Golden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate reports whether golden files should be rewritten.
func ShouldUpdate() bool {
	return *updateGolden
}

// GoldenPath returns testdata/<name>.golden in the calling package.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// CompareGolden compares got with the named golden file, failing with a diff
// on mismatch. With -update the file is rewritten instead.
func CompareGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	path := GoldenPath(name)

	if *updateGolden {
		UpdateGolden(t, name, got)
		t.Logf("Updated golden: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create it:\n  go test -run %s -update",
				path, got, t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}
	if !bytes.Equal(got, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\nRun with -update to refresh:\n  go test -run %s -update",
			name, unifiedDiff(string(expected), string(got), path), t.Name())
	}
}

// UpdateGolden writes data to the named golden file.
func UpdateGolden(t *testing.T, name string, data []byte) {
	t.Helper()
	path := GoldenPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create testdata directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

// unifiedDiff is a line-by-line diff with a little context. It does not
// realign after insertions, which is enough for short rendered output.
func unifiedDiff(expected, got, path string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	exp := strings.Split(expected, "\n")
	act := strings.Split(got, "\n")
	n := max(len(exp), len(act))
	at := func(lines []string, i int) (string, bool) {
		if i < len(lines) {
			return lines[i], true
		}
		return "", false
	}

	for i := 0; i < n; i++ {
		e, eok := at(exp, i)
		a, aok := at(act, i)
		if eok && aok && e == a {
			continue
		}
		fmt.Fprintf(&buf, "@@ line %d @@\n", i+1)
		if eok {
			buf.WriteString("-" + e + "\n")
		}
		if aok {
			buf.WriteString("+" + a + "\n")
		}
	}
	return buf.String()
}
