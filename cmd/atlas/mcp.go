package main

import (
	"github.com/spf13/cobra"

	"atlas/internal/mcp"
	"atlas/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server.

The server exposes the registry to MCP clients over stdio:
  - atlas_list_projects: list every project
  - atlas_get_project: full metadata of one project
  - atlas_search_projects: filter by text, tag or group
  - atlas_get_current_project: resolve a path to its project
  - atlas_list_providers: list provider definitions
  - atlas_render_index: the compact session index
  - atlas_read_file: read a text file inside a project
  - atlas_grep: regex search across a project's files
  - atlas_glob: list a project's files matching a glob

This command is typically invoked by MCP clients and not directly by users.
Logs go to stderr since stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info("Starting MCP server", "version", version.Version, "home", s.engine.Layout().Home)
	return mcp.Serve(mcp.NewServer(s.engine, version.Version, s.logger))
}
