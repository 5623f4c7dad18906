package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"atlas/internal/atlas"
	"atlas/internal/paths"
)

func newTestEngine(t *testing.T) (*atlas.Engine, string) {
	t.Helper()
	base := t.TempDir()
	engine, err := atlas.NewEngine(atlas.Options{Layout: paths.Layout{Home: filepath.Join(base, "atlas")}})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, filepath.Join(base, "work")
}

func addProject(t *testing.T, engine *atlas.Engine, root, config string) {
	t.Helper()
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	if config != "" {
		if err := os.WriteFile(filepath.Join(root, "atlas.yaml"), []byte(config), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := engine.Add(atlas.AddOptions{Path: root, NoDetect: true}); err != nil {
		t.Fatalf("Add %s: %v", root, err)
	}
}

func makeReq(args map[string]interface{}) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcpgo.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(t *testing.T, tool Tool, args map[string]interface{}) *mcpgo.CallToolResult {
	t.Helper()
	res, err := tool.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("%s: %v", tool.Definition().Name, err)
	}
	return res
}

func decode[T any](t *testing.T, r *mcpgo.CallToolResult) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return v
}

func TestTools_Definitions(t *testing.T) {
	engine, _ := newTestEngine(t)
	want := []string{
		"atlas_list_projects",
		"atlas_get_project",
		"atlas_search_projects",
		"atlas_get_current_project",
		"atlas_list_providers",
		"atlas_render_index",
		"atlas_read_file",
		"atlas_grep",
		"atlas_glob",
	}
	tools := Tools(engine, nil)
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}
	for i, tool := range tools {
		if got := tool.Definition().Name; got != want[i] {
			t.Errorf("tool %d = %q, want %q", i, got, want[i])
		}
	}

	def := (&GetProjectTool{}).Definition()
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "slug" {
		t.Errorf("atlas_get_project required = %v", def.InputSchema.Required)
	}
}

func TestListProjects(t *testing.T) {
	engine, work := newTestEngine(t)
	addProject(t, engine, filepath.Join(work, "web-sdk"), "name: Web SDK\nsummary: Browser SDK\ntags: [js]\ngroup: client\n")
	addProject(t, engine, filepath.Join(work, "collector"), "")

	res := call(t, &ListProjectsTool{engine: engine}, nil)
	list := decode[[]map[string]interface{}](t, res)
	if len(list) != 2 {
		t.Fatalf("got %d projects", len(list))
	}
	if list[0]["slug"] != "web-sdk" || list[0]["summary"] != "Browser SDK" || list[0]["group"] != "client" {
		t.Errorf("first = %v", list[0])
	}
	if list[1]["slug"] != "collector" || list[1]["summary"] != "" {
		t.Errorf("uncached project = %v", list[1])
	}
	if tags, ok := list[1]["tags"].([]interface{}); !ok || len(tags) != 0 {
		t.Errorf("uncached tags should be an empty array, got %#v", list[1]["tags"])
	}
}

func TestGetProject(t *testing.T) {
	engine, work := newTestEngine(t)
	root := filepath.Join(work, "api")
	addProject(t, engine, root, "name: API\nsummary: Public API\nlinks:\n  ci: https://ci\nnotes: |\n  Deploy on Fridays.\n")

	res := call(t, &GetProjectTool{engine: engine}, map[string]interface{}{"slug": "api"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	rec := decode[map[string]interface{}](t, res)
	if rec["name"] != "API" || rec["notes"] != "Deploy on Fridays.\n" {
		t.Errorf("record = %v", rec)
	}
	links, ok := rec["links"].(map[string]interface{})
	if !ok || links["ci"] != "https://ci" {
		t.Errorf("links = %#v", rec["links"])
	}

	res = call(t, &GetProjectTool{engine: engine}, map[string]interface{}{"slug": "ghost"})
	if !res.IsError || !strings.Contains(resultText(res), "Project 'ghost' not found") {
		t.Errorf("missing project = %s", resultText(res))
	}
	res = call(t, &GetProjectTool{engine: engine}, nil)
	if !res.IsError {
		t.Error("missing slug should fail")
	}
}

func TestSearchProjects(t *testing.T) {
	engine, work := newTestEngine(t)
	addProject(t, engine, filepath.Join(work, "web-sdk"), "name: Web SDK\nsummary: Browser SDK\ntags: [JS]\ngroup: client\n")
	addProject(t, engine, filepath.Join(work, "ios-sdk"), "name: iOS SDK\nsummary: Native SDK\ntags: [swift]\ngroup: client\n")
	addProject(t, engine, filepath.Join(work, "collector"), "name: Collector\nsummary: Event ingestion\ngroup: backend\n")

	tests := []struct {
		name string
		args map[string]interface{}
		want []string
	}{
		{"query", map[string]interface{}{"query": "sdk"}, []string{"web-sdk", "ios-sdk"}},
		{"tag ignores case", map[string]interface{}{"tag": "js"}, []string{"web-sdk"}},
		{"group", map[string]interface{}{"group": "Backend"}, []string{"collector"}},
		{"combined", map[string]interface{}{"query": "native", "group": "client"}, []string{"ios-sdk"}},
		{"no match", map[string]interface{}{"query": "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := decode[[]map[string]interface{}](t, call(t, &SearchProjectsTool{engine: engine}, tt.args))
			var got []string
			for _, rec := range list {
				got = append(got, rec["slug"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCurrentProject(t *testing.T) {
	engine, work := newTestEngine(t)
	root := filepath.Join(work, "api")
	addProject(t, engine, root, "name: API\nsummary: Public API\n")
	sub := filepath.Join(root, "internal", "server")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	rec := decode[map[string]interface{}](t, call(t, &CurrentProjectTool{engine: engine}, map[string]interface{}{"path": sub}))
	if rec["slug"] != "api" {
		t.Errorf("record = %v", rec)
	}

	none := decode[map[string]interface{}](t, call(t, &CurrentProjectTool{engine: engine}, map[string]interface{}{"path": work}))
	if v, ok := none["project"]; !ok || v != nil {
		t.Errorf("no match = %v", none)
	}
}

func TestListProvidersAndEnrich(t *testing.T) {
	engine, work := newTestEngine(t)
	root := filepath.Join(work, "api")
	addProject(t, engine, root, "name: API\nsummary: Public API\n")
	if err := os.WriteFile(filepath.Join(root, "issues.yaml"), []byte("open: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	empty := call(t, &ListProvidersTool{engine: engine}, nil)
	if strings.TrimSpace(resultText(empty)) != "[]" {
		t.Errorf("no providers = %s", resultText(empty))
	}

	dir := engine.Layout().ProvidersDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	def := "name: tracker\ndescription: Issue counts\nproject_file: issues.yaml\nfield_name: issues\n"
	if err := os.WriteFile(filepath.Join(dir, "tracker.yaml"), []byte(def), 0644); err != nil {
		t.Fatal(err)
	}

	provs := decode[[]map[string]interface{}](t, call(t, &ListProvidersTool{engine: engine}, nil))
	if len(provs) != 1 || provs[0]["name"] != "tracker" || provs[0]["field_name"] != "issues" {
		t.Errorf("providers = %v", provs)
	}

	list := decode[[]map[string]interface{}](t, call(t, &ListProjectsTool{engine: engine}, map[string]interface{}{"enrich": true}))
	issues, ok := list[0]["issues"].(map[string]interface{})
	if !ok || issues["open"] != float64(4) {
		t.Errorf("enriched list = %v", list[0])
	}
	plain := decode[[]map[string]interface{}](t, call(t, &ListProjectsTool{engine: engine}, nil))
	if _, ok := plain[0]["issues"]; ok {
		t.Error("provider data should only appear when enriched")
	}

	rec := decode[map[string]interface{}](t, call(t, &GetProjectTool{engine: engine}, map[string]interface{}{"slug": "api"}))
	if _, ok := rec["issues"]; !ok {
		t.Errorf("get_project should always enrich: %v", rec)
	}
}

func TestRenderIndex(t *testing.T) {
	engine, work := newTestEngine(t)

	res := call(t, &RenderIndexTool{engine: engine}, nil)
	if resultText(res) != "No projects registered." {
		t.Errorf("empty = %q", resultText(res))
	}

	root := filepath.Join(work, "api")
	addProject(t, engine, root, "name: API\nsummary: Public API\n")
	res = call(t, &RenderIndexTool{engine: engine}, map[string]interface{}{"cwd": root})
	if resultText(res) != "* api: Public API" {
		t.Errorf("index = %q", resultText(res))
	}
}

func TestNewServer(t *testing.T) {
	engine, _ := newTestEngine(t)
	if s := NewServer(engine, "test", nil); s == nil {
		t.Fatal("NewServer returned nil")
	}
}
