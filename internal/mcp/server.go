package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docsearch/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "docsearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes ingestion and search as MCP tools
type Server struct {
	mcp *server.MCPServer
	app *app.App
}

// NewServer creates a server over an opened application. The caller keeps
// ownership of a and closes it after Serve returns.
func NewServer(a *app.App) *Server {
	s := &Server{
		mcp: server.NewMCPServer(ServerName, ServerVersion),
		app: a,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.app.Logger.Info().Str("name", ServerName).Str("version", ServerVersion).Msg("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentsTool(), s.handleIngestDocuments)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(getDocumentTool(), s.handleGetDocument)
	s.mcp.AddTool(searchByTagsTool(), s.handleSearchByTags)
	s.mcp.AddTool(reconcileIndexTool(), s.handleReconcileIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
