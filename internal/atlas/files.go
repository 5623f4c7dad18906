package atlas

import (
	"context"

	"atlas/internal/files"
)

// ReadFile returns the text of rel inside the project slug.
func (e *Engine) ReadFile(slug, rel string) (*files.Content, error) {
	path, err := e.store.ResolveProjectFile(slug, rel)
	if err != nil {
		return nil, err
	}
	return files.Read(path, rel)
}

// Grep searches the text files of slug.
func (e *Engine) Grep(ctx context.Context, slug string, q files.GrepQuery) (*files.GrepResult, error) {
	root, err := e.store.ResolveProjectFile(slug, ".")
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Searching project", "slug", slug, "pattern", q.Pattern, "glob", q.Glob)
	return files.Grep(ctx, root, q)
}

// Glob lists the files of slug matching pattern.
func (e *Engine) Glob(ctx context.Context, slug, pattern string) (*files.GlobResult, error) {
	root, err := e.store.ResolveProjectFile(slug, ".")
	if err != nil {
		return nil, err
	}
	return files.Glob(ctx, root, pattern)
}
