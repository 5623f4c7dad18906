package testutil

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"
)

var rfc3339 = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`)

// Normalizer rewrites volatile parts of rendered output so it can be
// compared against a golden file. Temp roots become placeholders and
// timestamps become <timestamp> unless KeepTimes is set. On Windows,
// separators become slashes.
type Normalizer struct {
	// Roots maps absolute directories to the placeholder replacing them.
	// Longer roots are applied first.
	Roots     map[string]string
	KeepTimes bool
}

// Text normalizes s.
func (n Normalizer) Text(s string) string {
	for _, root := range n.sortedRoots() {
		s = strings.ReplaceAll(s, root, n.Roots[root])
	}
	if filepath.Separator == '\\' {
		s = strings.ReplaceAll(s, "\\", "/")
	}
	if !n.KeepTimes {
		s = rfc3339.ReplaceAllString(s, "<timestamp>")
	}
	return s
}

// JSON marshals v with sorted keys and two-space indent, then normalizes the
// result. A trailing newline is added.
func (n Normalizer) JSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal for normalization: %v", err)
	}
	// Round-trip through a generic value so map keys are sorted.
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("Failed to unmarshal for normalization: %v", err)
	}
	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return []byte(n.Text(string(out)) + "\n")
}

func (n Normalizer) sortedRoots() []string {
	roots := make([]string, 0, len(n.Roots))
	for r := range n.Roots {
		if r != "" {
			roots = append(roots, r)
		}
	}
	slices.SortFunc(roots, func(a, b string) int { return len(b) - len(a) })
	return roots
}
