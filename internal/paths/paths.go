// Package paths owns the Atlas directory layout and path normalization.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	// HomeEnvVar overrides the Atlas home directory.
	HomeEnvVar = "ATLAS_HOME"

	// DefaultHome is the Atlas home relative to the user's home directory.
	DefaultHome = ".claude/atlas"

	RegistryFile = "registry.yaml"
	SettingsFile = "config.yaml"
)

// GetAtlasHome returns the Atlas home directory, honoring ATLAS_HOME.
func GetAtlasHome() (string, error) {
	if env := os.Getenv(HomeEnvVar); env != "" {
		return ExpandHome(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultHome), nil
}

// Layout is the set of locations under an Atlas home.
type Layout struct {
	Home string
}

// NewLayout returns the layout rooted at home. An empty home resolves via GetAtlasHome.
func NewLayout(home string) (Layout, error) {
	if home == "" {
		h, err := GetAtlasHome()
		if err != nil {
			return Layout{}, err
		}
		return Layout{Home: h}, nil
	}
	h, err := ExpandHome(home)
	if err != nil {
		return Layout{}, err
	}
	abs, err := filepath.Abs(h)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Home: abs}, nil
}

func (l Layout) RegistryPath() string { return filepath.Join(l.Home, RegistryFile) }
func (l Layout) SettingsPath() string { return filepath.Join(l.Home, SettingsFile) }
func (l Layout) CacheDir() string     { return filepath.Join(l.Home, "cache", "projects") }
func (l Layout) ProvidersDir() string { return filepath.Join(l.Home, "providers") }
func (l Layout) LogsDir() string      { return filepath.Join(l.Home, "logs") }

// ExpandHome expands a leading "~" or "~/" to the user's home directory.
// "~user" forms are returned unchanged.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", p, err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

// Normalize expands the home shorthand, makes p absolute, strips trailing
// separators, and resolves symlinks in the longest existing prefix. Both
// sides of any path comparison must go through Normalize.
func Normalize(p string) (string, error) {
	expanded, err := ExpandHome(strings.TrimSpace(p))
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return resolveExisting(filepath.Clean(abs)), nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of abs
// and re-appends the components that do not exist yet, so a path below a
// symlinked root normalizes the same way as the root itself.
func resolveExisting(abs string) string {
	var rest []string
	dir := abs
	for {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			slices.Reverse(rest)
			return filepath.Join(append([]string{resolved}, rest...)...)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		rest = append(rest, filepath.Base(dir))
		dir = parent
	}
}

// Contract replaces a home-directory prefix with "~" for display and storage.
func Contract(p string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	if p == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(p, home+string(filepath.Separator)); ok {
		return "~/" + filepath.ToSlash(rest)
	}
	return p
}

// IsWithin reports whether target equals root or lies beneath it.
// Both arguments must already be normalized.
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// WriteFileAtomic writes data to a uniquely named temp file next to path,
// syncs it, and renames it over path. Readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}
	return nil
}
