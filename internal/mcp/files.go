package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"atlas/internal/atlas"
	atlaserrors "atlas/internal/errors"
	"atlas/internal/files"
)

// ReadFileTool handles atlas_read_file.
type ReadFileTool struct {
	engine *atlas.Engine
}

func (t *ReadFileTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_read_file",
		mcpgo.WithDescription(
			"Read a text file from a registered project. The path is relative to the project root "+
				"and may not leave it. Files over 1 MB and binary files are refused.",
		),
		mcpgo.WithString("slug",
			mcpgo.Required(),
			mcpgo.Description("The project slug"),
		),
		mcpgo.WithString("path",
			mcpgo.Required(),
			mcpgo.Description("File path relative to the project root, e.g. 'src/main.go'"),
		),
	)
}

func (t *ReadFileTool) Handle(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	slug := strings.TrimSpace(req.GetString("slug", ""))
	path := strings.TrimSpace(req.GetString("path", ""))
	if slug == "" || path == "" {
		return errorResult("'slug' and 'path' are required"), nil
	}
	content, err := t.engine.ReadFile(slug, path)
	if err != nil {
		return fileError(slug, err), nil
	}
	return jsonResult(content)
}

// GrepTool handles atlas_grep.
type GrepTool struct {
	engine *atlas.Engine
}

func (t *GrepTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_grep",
		mcpgo.WithDescription(
			"Search a registered project's text files with a regular expression. Returns "+
				"{matches: [{file, line, content}], truncated}. Ignored and binary files are skipped.",
		),
		mcpgo.WithString("slug",
			mcpgo.Required(),
			mcpgo.Description("The project slug"),
		),
		mcpgo.WithString("pattern",
			mcpgo.Required(),
			mcpgo.Description("RE2 regular expression matched against each line"),
		),
		mcpgo.WithString("glob",
			mcpgo.Description("Only search files matching this glob, e.g. 'src/**/*.go'"),
		),
		mcpgo.WithNumber("max_results",
			mcpgo.Description(fmt.Sprintf("Stop after this many matches (default %d)", files.DefaultMaxResults)),
		),
	)
}

func (t *GrepTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	slug := strings.TrimSpace(req.GetString("slug", ""))
	pattern := req.GetString("pattern", "")
	if slug == "" || pattern == "" {
		return errorResult("'slug' and 'pattern' are required"), nil
	}
	res, err := t.engine.Grep(ctx, slug, files.GrepQuery{
		Pattern:    pattern,
		Glob:       strings.TrimSpace(req.GetString("glob", "")),
		MaxResults: intArg(req, "max_results", files.DefaultMaxResults),
	})
	if err != nil {
		return fileError(slug, err), nil
	}
	return jsonResult(res)
}

// GlobTool handles atlas_glob.
type GlobTool struct {
	engine *atlas.Engine
}

func (t *GlobTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_glob",
		mcpgo.WithDescription(
			"List files in a registered project matching a glob. '*' stays within one directory, "+
				"'**/' spans directories. Returns {files, count}.",
		),
		mcpgo.WithString("slug",
			mcpgo.Required(),
			mcpgo.Description("The project slug"),
		),
		mcpgo.WithString("pattern",
			mcpgo.Required(),
			mcpgo.Description("Glob relative to the project root, e.g. '**/*.py'"),
		),
	)
}

func (t *GlobTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	slug := strings.TrimSpace(req.GetString("slug", ""))
	pattern := strings.TrimSpace(req.GetString("pattern", ""))
	if slug == "" || pattern == "" {
		return errorResult("'slug' and 'pattern' are required"), nil
	}
	res, err := t.engine.Glob(ctx, slug, pattern)
	if err != nil {
		return fileError(slug, err), nil
	}
	return jsonResult(res)
}

// fileError reports err without the CLI-oriented fix hints.
func fileError(slug string, err error) *mcpgo.CallToolResult {
	ae, ok := atlaserrors.AsAtlasError(err)
	if !ok {
		return errorResult(err.Error())
	}
	if ae.Code == atlaserrors.NotFound && ae.Slug != "" {
		return errorResult(fmt.Sprintf("Project '%s' not found", slug))
	}
	msg := ae.Message
	if cause := ae.Unwrap(); cause != nil {
		msg += ": " + cause.Error()
	}
	return errorResult(msg)
}
