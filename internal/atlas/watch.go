package atlas

import (
	"context"
	"time"

	"atlas/internal/cache"
	"atlas/internal/watcher"
)

// registrySource feeds the watcher from the registry file on disk.
type registrySource struct {
	e *Engine
}

// Targets reloads the registry so projects added by other processes are
// picked up.
func (s registrySource) Targets() ([]watcher.Target, error) {
	if err := s.e.store.Reload(); err != nil {
		return nil, err
	}
	s.e.warnInvalidSlugs()
	var out []watcher.Target
	for entry := range s.e.store.All() {
		root, err := s.e.store.ProjectRoot(entry.Slug)
		if err != nil {
			s.e.logger.Debug("Skipping project without a usable root", "slug", entry.Slug, "error", err.Error())
			continue
		}
		out = append(out, watcher.Target{Slug: entry.Slug, Dir: root})
	}
	return out, nil
}

// Watch re-caches each project whose metadata file changes until ctx is
// done. onRefresh, when set, sees every outcome.
func (e *Engine) Watch(ctx context.Context, debounce time.Duration, onRefresh func(*cache.Outcome)) error {
	if debounce <= 0 {
		debounce = time.Duration(e.cfg.Watch.DebounceMs) * time.Millisecond
	}
	w, err := watcher.New(registrySource{e}, func(slugs []string) {
		for _, slug := range slugs {
			out, err := e.Refresh(slug)
			if err != nil {
				e.logger.Warn("Refresh failed", "slug", slug, "error", err.Error())
				continue
			}
			if onRefresh != nil {
				onRefresh(out)
			}
		}
	}, watcher.Options{
		RegistryPath: e.layout.RegistryPath(),
		ConfigFile:   e.cfg.ConfigFile,
		Debounce:     debounce,
		Logger:       e.logger.With("component", "watcher"),
	})
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx)
}
