// Package atlas wires the registry, resolver, cache, detectors, and providers
// into the operations exposed by the CLI and the MCP server.
package atlas

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"atlas/internal/atlasfile"
	"atlas/internal/cache"
	"atlas/internal/config"
	"atlas/internal/detect"
	atlaserrors "atlas/internal/errors"
	"atlas/internal/paths"
	"atlas/internal/providers"
	"atlas/internal/registry"
	"atlas/internal/slogutil"
)

// Options configures an Engine.
type Options struct {
	Layout paths.Layout
	// Config defaults to config.DefaultConfig().
	Config *config.Config
	Logger *slog.Logger
	// Detectors defaults to detect.Default().
	Detectors []detect.Detector
	// Now stamps cache entries; defaults to time.Now.
	Now func() time.Time
}

// Engine is the composition root for every Atlas operation.
type Engine struct {
	layout    paths.Layout
	cfg       *config.Config
	logger    *slog.Logger
	store     *registry.Store
	resolver  *registry.Resolver
	cache     *cache.Manager
	detectors []detect.Detector
}

// NewEngine opens the registry under the layout's home.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Layout.Home == "" {
		return nil, fmt.Errorf("atlas home is not set")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	detectors := opts.Detectors
	if detectors == nil {
		detectors = detect.Default()
	}

	store, err := registry.Open(opts.Layout.RegistryPath())
	if err != nil {
		return nil, err
	}
	e := &Engine{
		layout:    opts.Layout,
		cfg:       cfg,
		logger:    logger,
		store:     store,
		resolver:  registry.NewResolver(store),
		detectors: detectors,
		cache: cache.NewManager(store, cache.Options{
			Dir:        opts.Layout.CacheDir(),
			ConfigFile: cfg.ConfigFile,
			IndexCap:   cfg.IndexCap,
			Logger:     logger.With("component", "cache"),
			Now:        opts.Now,
		}),
	}
	e.warnInvalidSlugs()
	return e, nil
}

func (e *Engine) warnInvalidSlugs() {
	for _, key := range e.store.Invalid() {
		e.logger.Warn("Skipping registry entry with invalid slug", "slug", key, "registry", e.store.Path())
	}
}

// Layout returns the Atlas home layout.
func (e *Engine) Layout() paths.Layout { return e.layout }

// Registry exposes the registry store.
func (e *Engine) Registry() *registry.Store { return e.store }

// Cache exposes the cache manager.
func (e *Engine) Cache() *cache.Manager { return e.cache }

// Resolve maps path to the registered project containing it, or nil.
func (e *Engine) Resolve(path string) (*registry.Match, error) {
	return e.resolver.Resolve(path)
}

// Target is the project a command operates on and how it was chosen.
type Target struct {
	Slug   string                    `json:"slug"`
	Source registry.ResolutionSource `json:"source"`
}

// ResolveTarget picks the project for commands whose slug is optional:
// an explicit slug, then ATLAS_PROJECT, then the project containing cwd.
func (e *Engine) ResolveTarget(explicit, cwd string) (*Target, error) {
	if explicit != "" {
		if _, err := e.store.Lookup(explicit); err != nil {
			return nil, err
		}
		return &Target{Slug: explicit, Source: registry.ResolvedFromFlag}, nil
	}
	if env := os.Getenv(registry.ProjectEnvVar); env != "" {
		if _, err := e.store.Lookup(env); err != nil {
			return nil, err
		}
		return &Target{Slug: env, Source: registry.ResolvedFromEnv}, nil
	}

	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		cwd = wd
	}
	m, err := e.resolver.Resolve(cwd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, atlaserrors.NewUnresolvedError(cwd)
	}
	return &Target{Slug: m.Slug, Source: registry.ResolvedFromCWD}, nil
}

// Refresh re-caches one project.
func (e *Engine) Refresh(slug string) (*cache.Outcome, error) {
	out, err := e.cache.Refresh(slug)
	if err != nil {
		return nil, err
	}
	if out.Warning != nil {
		e.logger.Warn(out.Warning.Message, "slug", slug, "status", string(out.Status))
	}
	return out, nil
}

// RefreshAll re-caches every project and prunes orphaned entries.
func (e *Engine) RefreshAll() *cache.Report {
	return e.cache.RefreshAll()
}

// List joins the registry with the cache, filtered.
func (e *Engine) List(f cache.Filter) *cache.QueryResult {
	return e.cache.Query(f)
}

// RenderIndex renders the session index, marking the project containing cwd.
// Resolution problems never fail rendering; they only drop the marker.
func (e *Engine) RenderIndex(cwd string) []string {
	current := ""
	if cwd != "" {
		m, err := e.resolver.Resolve(cwd)
		switch {
		case err != nil:
			e.logger.Warn("Could not resolve current project", "path", cwd, "error", err.Error())
		case m != nil:
			current = m.Slug
		}
	}
	return e.cache.RenderIndex(current)
}

// GetProjectConfig returns the cached config of slug, or nil when the project
// has never been cached.
func (e *Engine) GetProjectConfig(slug string) (*atlasfile.ProjectConfig, error) {
	if _, err := e.store.Lookup(slug); err != nil {
		return nil, err
	}
	entry, err := e.cache.Load(slug)
	if err != nil || entry == nil {
		return nil, err
	}
	cfg := entry.ProjectConfig
	return &cfg, nil
}

// Providers loads the provider definitions.
func (e *Engine) Providers() ([]providers.Provider, error) {
	set, err := e.providerSet()
	if err != nil {
		return nil, err
	}
	return set.List(), nil
}

func (e *Engine) providerSet() (*providers.Set, error) {
	return providers.Load(e.layout.ProvidersDir(), e.logger.With("component", "providers"))
}

// Enrich returns provider data for slug.
func (e *Engine) Enrich(slug string) (map[string]interface{}, error) {
	root, err := e.store.ProjectRoot(slug)
	if err != nil {
		return nil, err
	}
	set, err := e.providerSet()
	if err != nil {
		return nil, err
	}
	return set.Enrich(root), nil
}

// projectRoot resolves slug to an existing directory.
func (e *Engine) projectRoot(slug string) (string, error) {
	root, err := e.store.ProjectRoot(slug)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", atlaserrors.NewPathNotFoundWarning(slug, root)
	}
	return root, nil
}

// loadProjectConfig reads the metadata file of slug. A missing file is a
// CONFIG_MISSING error naming the slug.
func (e *Engine) loadProjectConfig(slug, root string) (*atlasfile.ProjectConfig, error) {
	cfg, err := atlasfile.Load(root, e.cfg.ConfigFile)
	if errors.Is(err, atlasfile.ErrNotExist) {
		return nil, atlaserrors.NewConfigMissingWarning(slug, atlasfile.File(root, e.cfg.ConfigFile))
	}
	return cfg, err
}
