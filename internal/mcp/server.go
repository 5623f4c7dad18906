// Package mcp exposes the Atlas registry to coding agents as MCP tools over
// stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"atlas/internal/atlas"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "atlas"

const instructions = "Project registry: list, search, and get project metadata managed by Atlas. " +
	"Use atlas_get_current_project to learn which project a path belongs to and " +
	"atlas_get_project for the full record of a slug. atlas_read_file, atlas_grep and " +
	"atlas_glob reach into another project's files by slug."

// NewServer builds the MCP server with every Atlas tool registered.
func NewServer(engine *atlas.Engine, version string, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, t := range Tools(engine, logger) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
