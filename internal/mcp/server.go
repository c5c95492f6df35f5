// Package mcp exposes the engine as Model-Context-Protocol tools over
// stdio, for coding agents that speak MCP instead of the daemon's
// JSON-RPC socket. The package is a thin collaborator: every tool
// delegates to the engine-level API.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/steeltroops-ai/omnicontext/internal/engine"
)

// serverName and serverVersion identify this MCP server to clients.
const (
	serverName    = "omnicontext"
	serverVersion = "1.0.0"
)

// Server wraps one repository's engine in an MCP tool server.
type Server struct {
	engine *engine.Engine
	mcp    *server.MCPServer
}

// NewServer registers every tool against a fresh MCP server.
func NewServer(e *engine.Engine) *Server {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)

	AddSearchTool(s, e)
	AddContextWindowTool(s, e)
	AddStatusTool(s, e)
	AddDependenciesTool(s, e)
	AddIndexTool(s, e)

	return &Server{engine: e, mcp: s}
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
