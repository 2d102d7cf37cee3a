package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/deadapi/internal/service/analysis"
)

// Server wraps the MCP server and registers the deadapi tools.
type Server struct {
	server *mcp.Server
	svc    *analysis.Service
}

// NewServer creates a new MCP server backed by svc. A nil svc uses the
// configuration found in the working directory.
func NewServer(version string, svc *analysis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = analysis.New()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "deadapi",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, svc: svc}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_unused_methods",
		Description: describeFindUnused(),
	}, s.handleFindUnused)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_quarantined",
		Description: describeListQuarantined(),
	}, s.handleListQuarantined)
}
