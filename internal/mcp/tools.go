package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"atlas/internal/atlas"
	"atlas/internal/cache"
	atlaserrors "atlas/internal/errors"
	"atlas/internal/providers"
	"atlas/internal/slogutil"
)

// Tool is one MCP tool backed by the engine.
type Tool interface {
	Definition() mcpgo.Tool
	Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error)
}

// Tools returns every Atlas tool in registration order.
func Tools(engine *atlas.Engine, logger *slog.Logger) []Tool {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return []Tool{
		&ListProjectsTool{engine: engine, logger: logger},
		&GetProjectTool{engine: engine},
		&SearchProjectsTool{engine: engine},
		&CurrentProjectTool{engine: engine},
		&ListProvidersTool{engine: engine},
		&RenderIndexTool{engine: engine},
		&ReadFileTool{engine: engine},
		&GrepTool{engine: engine},
		&GlobTool{engine: engine},
	}
}

// ListProjectsTool handles atlas_list_projects.
type ListProjectsTool struct {
	engine *atlas.Engine
	logger *slog.Logger
}

func (t *ListProjectsTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_list_projects",
		mcpgo.WithDescription(
			"List all registered projects in the Atlas registry. Returns a JSON array "+
				"with slug, path, repo, name, summary, tags and group.",
		),
		mcpgo.WithBoolean("enrich",
			mcpgo.Description("Include data from registered providers. Reads per-project files for each provider."),
		),
	)
}

func (t *ListProjectsTool) Handle(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	enrich := req.GetBool("enrich", false)
	res := t.engine.List(cache.Filter{})

	out := make([]map[string]interface{}, 0, len(res.Items))
	for _, it := range res.Items {
		rec := projectSummary(it.Project, it.Cached)
		if enrich {
			data, err := t.engine.Enrich(it.Project.Slug)
			if err != nil {
				t.logger.Warn("Provider enrichment failed", "slug", it.Project.Slug, "error", err.Error())
			}
			for field, value := range data {
				rec[field] = value
			}
		}
		out = append(out, rec)
	}
	return jsonResult(out)
}

// GetProjectTool handles atlas_get_project.
type GetProjectTool struct {
	engine *atlas.Engine
}

func (t *GetProjectTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_get_project",
		mcpgo.WithDescription(
			"Get full metadata for a project by slug: every atlas.yaml field plus "+
				"registry path and repo, enriched by providers.",
		),
		mcpgo.WithString("slug",
			mcpgo.Required(),
			mcpgo.Description("The project slug, e.g. 'web-sdk'"),
		),
	)
}

func (t *GetProjectTool) Handle(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	slug := strings.TrimSpace(req.GetString("slug", ""))
	if slug == "" {
		return errorResult("'slug' is required"), nil
	}
	view, err := t.engine.Show(slug, true)
	if atlaserrors.HasCode(err, atlaserrors.NotFound) {
		return errorResult(fmt.Sprintf("Project '%s' not found", slug)), nil
	}
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(projectRecord(view))
}

// SearchProjectsTool handles atlas_search_projects.
type SearchProjectsTool struct {
	engine *atlas.Engine
}

func (t *SearchProjectsTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_search_projects",
		mcpgo.WithDescription(
			"Search projects by text, tag, or group. All given filters must match. "+
				"Returns a JSON array of matching projects.",
		),
		mcpgo.WithString("query",
			mcpgo.Description("Case-insensitive substring matched against slug, name and summary"),
		),
		mcpgo.WithString("tag",
			mcpgo.Description("Only projects carrying this tag"),
		),
		mcpgo.WithString("group",
			mcpgo.Description("Only projects in this group"),
		),
	)
}

func (t *SearchProjectsTool) Handle(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	res := t.engine.List(cache.Filter{
		Query: strings.TrimSpace(req.GetString("query", "")),
		Tag:   strings.TrimSpace(req.GetString("tag", "")),
		Group: strings.TrimSpace(req.GetString("group", "")),
	})
	out := make([]map[string]interface{}, 0, len(res.Items))
	for _, it := range res.Items {
		out = append(out, projectSummary(it.Project, it.Cached))
	}
	return jsonResult(out)
}

// CurrentProjectTool handles atlas_get_current_project.
type CurrentProjectTool struct {
	engine *atlas.Engine
}

func (t *CurrentProjectTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_get_current_project",
		mcpgo.WithDescription(
			"Detect which project a filesystem path belongs to. An exact path match wins, "+
				"then the deepest registered ancestor. Returns {\"project\": null} when nothing matches.",
		),
		mcpgo.WithString("path",
			mcpgo.Description("Path to check. Defaults to the server's working directory."),
		),
	)
}

func (t *CurrentProjectTool) Handle(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	path := strings.TrimSpace(req.GetString("path", ""))
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errorResult(fmt.Sprintf("failed to get working directory: %v", err)), nil
		}
		path = wd
	}
	view, err := t.engine.Current(path, true)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if view == nil {
		return jsonResult(map[string]interface{}{"project": nil})
	}
	return jsonResult(projectRecord(view))
}

// ListProvidersTool handles atlas_list_providers.
type ListProvidersTool struct {
	engine *atlas.Engine
}

func (t *ListProvidersTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_list_providers",
		mcpgo.WithDescription(
			"List registered providers: plugins contributing extra per-project data. "+
				"Returns name, description, version, project_file and field_name for each.",
		),
	)
}

func (t *ListProvidersTool) Handle(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	list, err := t.engine.Providers()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if list == nil {
		list = []providers.Provider{}
	}
	return jsonResult(list)
}

// RenderIndexTool handles atlas_render_index.
type RenderIndexTool struct {
	engine *atlas.Engine
}

func (t *RenderIndexTool) Definition() mcpgo.Tool {
	return mcpgo.NewTool("atlas_render_index",
		mcpgo.WithDescription(
			"Render the compact one-line-per-project index, marking the project that contains cwd.",
		),
		mcpgo.WithString("cwd",
			mcpgo.Description("Directory whose project is marked current"),
		),
	)
}

func (t *RenderIndexTool) Handle(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	lines := t.engine.RenderIndex(strings.TrimSpace(req.GetString("cwd", "")))
	if len(lines) == 0 {
		return mcpgo.NewToolResultText("No projects registered."), nil
	}
	return mcpgo.NewToolResultText(strings.Join(lines, "\n")), nil
}
