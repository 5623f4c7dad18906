package atlas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"atlas/internal/atlasfile"
	"atlas/internal/cache"
	"atlas/internal/detect"
	atlaserrors "atlas/internal/errors"
	"atlas/internal/paths"
	"atlas/internal/registry"
)

// AddOptions are the inputs of Add.
type AddOptions struct {
	// Path defaults to the current directory.
	Path string
	// Slug defaults to the slugified directory name.
	Slug string
	// Repo defaults to the origin remote of the enclosing git repository.
	Repo string
	Also []string
	// Summary seeds a new metadata file.
	Summary string
	// Force overwrites an existing registration of the same slug.
	Force bool
	// NoDetect skips metadata detection when creating the file.
	NoDetect bool
}

// AddResult reports what Add did.
type AddResult struct {
	Project       registry.ProjectEntry     `json:"project"`
	Replaced      string                    `json:"replaced,omitempty"`
	ConfigCreated bool                      `json:"configCreated"`
	ConfigPath    string                    `json:"configPath"`
	Refresh       *cache.Outcome            `json:"refresh"`
	Warnings      []*atlaserrors.AtlasError `json:"warnings,omitempty"`
}

// Add registers a project, creates its metadata file when missing and
// something can be said about it, and caches it.
func (e *Engine) Add(opts AddOptions) (*AddResult, error) {
	if opts.Summary != "" {
		if err := atlasfile.ValidateSummary(opts.Summary); err != nil {
			return nil, err
		}
	}

	target := opts.Path
	if target == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		target = wd
	}
	root, err := paths.Normalize(target)
	if err != nil {
		return nil, atlaserrors.NewValidationError("path", err.Error())
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, atlaserrors.NewValidationError("path", fmt.Sprintf("%s is not a directory", root))
	}

	slug := opts.Slug
	if slug == "" {
		slug = registry.Slugify(filepath.Base(root))
	}
	if err := registry.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if existing, ok := e.store.Get(slug); ok && !opts.Force {
		return nil, atlaserrors.NewValidationError("slug",
			fmt.Sprintf("%s is already registered at %s", slug, existing.Path)).
			WithSlug(slug).
			WithFix("atlas add --force", "pass --force to overwrite, or choose another --slug")
	}

	var partial *detect.Partial
	if e.cfg.Detect && !opts.NoDetect {
		p, err := detect.Run(root, e.detectors...)
		if err != nil {
			e.logger.Debug("Detection incomplete", "slug", slug, "error", err.Error())
		}
		partial = p
	}

	repo := opts.Repo
	if repo == "" && partial != nil {
		repo = partial.Repo
	}
	// The detector chain already consulted git when it ran.
	if repo == "" && partial == nil {
		if url, err := detect.RemoteURL(root); err == nil {
			repo = url
		} else {
			e.logger.Debug("No git remote", "slug", slug, "error", err.Error())
		}
	}

	var also []string
	for _, a := range opts.Also {
		norm, err := paths.Normalize(a)
		if err != nil {
			return nil, atlaserrors.NewValidationError("also", err.Error())
		}
		also = append(also, paths.Contract(norm))
	}

	entry := registry.ProjectEntry{
		Slug:            slug,
		Path:            paths.Contract(root),
		Repo:            repo,
		AdditionalPaths: also,
	}
	warning, err := e.store.Upsert(entry)
	if err != nil {
		return nil, err
	}
	entry, _ = e.store.Get(slug)

	res := &AddResult{
		Project:    entry,
		ConfigPath: atlasfile.File(root, e.cfg.ConfigFile),
	}
	if warning != nil {
		res.Replaced = warning.String()
		e.logger.Warn("Replaced existing registration", "slug", slug, "change", warning.String())
	}

	if !atlasfile.Exists(root, e.cfg.ConfigFile) {
		cfg := &atlasfile.ProjectConfig{Summary: opts.Summary}
		if partial != nil {
			partial.Fill(cfg)
		}
		if cfg.Name == "" {
			cfg.Name = filepath.Base(root)
		}
		if cfg.Summary != "" {
			if err := atlasfile.Save(root, e.cfg.ConfigFile, cfg); err != nil {
				return nil, err
			}
			res.ConfigCreated = true
		}
	}

	out, err := e.Refresh(slug)
	if err != nil {
		return nil, err
	}
	res.Refresh = out
	if out.Warning != nil {
		res.Warnings = append(res.Warnings, out.Warning)
	}
	return res, nil
}

// ProjectView is a project joined with its cache entry.
type ProjectView struct {
	Project registry.ProjectEntry `json:"project"`
	Cached  *cache.Entry          `json:"cached,omitempty"`
	// Providers holds provider data when the view was enriched.
	Providers map[string]interface{} `json:"providers,omitempty"`
	Detail    string                 `json:"-"`
}

// Show returns the cached view of slug, optionally enriched by providers.
func (e *Engine) Show(slug string, enrich bool) (*ProjectView, error) {
	entry, err := e.store.Lookup(slug)
	if err != nil {
		return nil, err
	}
	cached, err := e.cache.Load(slug)
	if err != nil {
		return nil, err
	}
	view := &ProjectView{
		Project: entry,
		Cached:  cached,
		Detail:  cache.FormatDetail(entry, cached),
	}
	if enrich {
		data, err := e.Enrich(slug)
		if err != nil {
			e.logger.Warn("Provider enrichment failed", "slug", slug, "error", err.Error())
		}
		if len(data) > 0 {
			view.Providers = data
		}
	}
	return view, nil
}

// Current resolves path and returns the view of the project containing it,
// or nil when none does.
func (e *Engine) Current(path string, enrich bool) (*ProjectView, error) {
	m, err := e.resolver.Resolve(path)
	if err != nil || m == nil {
		return nil, err
	}
	return e.Show(m.Slug, enrich)
}

// EditOptions lists the fields to change. Nil pointers leave a field alone.
type EditOptions struct {
	Name       *string
	Summary    *string
	Group      *string
	Notes      *string
	AddTags    []string
	RemoveTags []string
	// Metadata sets keys; an empty value deletes the key.
	Metadata map[string]string
}

// IsZero reports whether the options change nothing.
func (o EditOptions) IsZero() bool {
	return o.Name == nil && o.Summary == nil && o.Group == nil && o.Notes == nil &&
		len(o.AddTags) == 0 && len(o.RemoveTags) == 0 && len(o.Metadata) == 0
}

// EditResult reports the saved config.
type EditResult struct {
	Slug    string                   `json:"slug"`
	Config  *atlasfile.ProjectConfig `json:"config"`
	Created bool                     `json:"created"`
	Refresh *cache.Outcome           `json:"refresh"`
}

// Edit applies changes to the project's metadata file, creating it when
// missing, then re-caches the project.
func (e *Engine) Edit(slug string, opts EditOptions) (*EditResult, error) {
	if opts.IsZero() {
		return nil, atlaserrors.NewValidationError("edit", "nothing to change").WithSlug(slug)
	}
	root, err := e.projectRoot(slug)
	if err != nil {
		return nil, err
	}

	created := false
	cfg, err := e.loadProjectConfig(slug, root)
	if atlaserrors.HasCode(err, atlaserrors.ConfigMissing) {
		cfg, created, err = &atlasfile.ProjectConfig{Name: slug}, true, nil
	}
	if err != nil {
		return nil, err
	}

	if opts.Name != nil {
		cfg.Name = strings.TrimSpace(*opts.Name)
	}
	if opts.Summary != nil {
		cfg.Summary = strings.TrimSpace(*opts.Summary)
	}
	if opts.Group != nil {
		cfg.Group = strings.TrimSpace(*opts.Group)
	}
	if opts.Notes != nil {
		cfg.Notes = *opts.Notes
	}
	cfg.RemoveTags(opts.RemoveTags...)
	cfg.AddTags(opts.AddTags...)
	for k, v := range opts.Metadata {
		if v == "" {
			delete(cfg.Metadata, k)
			continue
		}
		if cfg.Metadata == nil {
			cfg.Metadata = make(map[string]string)
		}
		cfg.Metadata[k] = v
	}
	if len(cfg.Metadata) == 0 {
		cfg.Metadata = nil
	}

	if err := cfg.Validate(); err != nil {
		if ae, ok := atlaserrors.AsAtlasError(err); ok {
			return nil, ae.WithSlug(slug)
		}
		return nil, err
	}
	if err := atlasfile.Save(root, e.cfg.ConfigFile, cfg); err != nil {
		return nil, err
	}
	out, err := e.Refresh(slug)
	if err != nil {
		return nil, err
	}
	return &EditResult{Slug: slug, Config: cfg, Created: created, Refresh: out}, nil
}

// LinkResult reports a saved link.
type LinkResult struct {
	Slug    string         `json:"slug"`
	Name    string         `json:"name"`
	URL     string         `json:"url"`
	Updated bool           `json:"updated"`
	Refresh *cache.Outcome `json:"refresh"`
}

// Link adds or replaces a named link in the project's metadata file.
func (e *Engine) Link(slug, name, url string) (*LinkResult, error) {
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if name == "" {
		return nil, atlaserrors.NewValidationError("name", "link name is required").WithSlug(slug)
	}
	if url == "" {
		return nil, atlaserrors.NewValidationError("url", "link URL is required").WithSlug(slug)
	}
	root, err := e.projectRoot(slug)
	if err != nil {
		return nil, err
	}
	cfg, err := e.loadProjectConfig(slug, root)
	if err != nil {
		return nil, err
	}

	_, updated := cfg.Links.Get(name)
	cfg.Links.Set(name, url)
	if err := atlasfile.Save(root, e.cfg.ConfigFile, cfg); err != nil {
		if ae, ok := atlaserrors.AsAtlasError(err); ok {
			return nil, ae.WithSlug(slug)
		}
		return nil, err
	}
	out, err := e.Refresh(slug)
	if err != nil {
		return nil, err
	}
	return &LinkResult{Slug: slug, Name: name, URL: url, Updated: updated, Refresh: out}, nil
}

// RemoveResult reports an unregistered project.
type RemoveResult struct {
	Project registry.ProjectEntry `json:"project"`
}

// Remove unregisters slug and drops its cache entry. The project directory
// and its metadata file are left alone.
func (e *Engine) Remove(slug string) (*RemoveResult, error) {
	entry, err := e.store.Lookup(slug)
	if err != nil {
		return nil, err
	}
	if err := e.store.Remove(slug); err != nil {
		return nil, err
	}
	if err := e.cache.Delete(slug); err != nil {
		e.logger.Warn("Failed to drop cache entry", "slug", slug, "error", err.Error())
	}
	return &RemoveResult{Project: entry}, nil
}
