package mcp

import (
	"encoding/json"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"atlas/internal/atlas"
	"atlas/internal/cache"
	"atlas/internal/registry"
)

// projectSummary is the flat record returned by the list and search tools.
// Uncached projects report empty metadata fields.
func projectSummary(p registry.ProjectEntry, e *cache.Entry) map[string]interface{} {
	rec := map[string]interface{}{
		"slug":    p.Slug,
		"path":    p.Path,
		"repo":    p.Repo,
		"name":    "",
		"summary": "",
		"tags":    []string{},
		"group":   "",
	}
	if e != nil {
		rec["name"] = e.Name
		rec["summary"] = e.Summary
		rec["group"] = e.Group
		if len(e.Tags) > 0 {
			rec["tags"] = e.Tags
		}
	}
	return rec
}

// projectRecord is the full record of one project: registry fields, every
// cached metadata field, and provider data keyed by field name.
func projectRecord(v *atlas.ProjectView) map[string]interface{} {
	rec := projectSummary(v.Project, v.Cached)
	if c := v.Cached; c != nil {
		if len(c.Links) > 0 {
			rec["links"] = c.Links
		}
		if len(c.Docs) > 0 {
			rec["docs"] = c.Docs
		}
		if c.Notes != "" {
			rec["notes"] = c.Notes
		}
		if len(c.Metadata) > 0 {
			rec["metadata"] = c.Metadata
		}
		rec["cached_at"] = c.Meta.CachedAt
	}
	for field, value := range v.Providers {
		rec[field] = value
	}
	return rec
}

func jsonResult(v interface{}) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcpgo.NewToolResultText(string(data)), nil
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(req mcpgo.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func errorResult(msg string) *mcpgo.CallToolResult {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return mcpgo.NewToolResultError(string(data))
}
