package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/deadapi/internal/cache"
	"github.com/panbanda/deadapi/internal/output"
	"github.com/panbanda/deadapi/internal/service/analysis"
)

// FindUnusedInput configures find_unused_methods.
type FindUnusedInput struct {
	Core            string   `json:"core,omitempty" jsonschema:"Path to the core war or jar. Defaults to core.path from the configuration."`
	Plugins         string   `json:"plugins,omitempty" jsonschema:"Directory holding .hpi/.jpi plugin archives. Defaults to plugins.dir from the configuration."`
	Workers         int      `json:"workers,omitempty" jsonschema:"Number of artifacts analyzed at once. Default one per CPU."`
	IncludePrefixes []string `json:"include_prefixes,omitempty" jsonschema:"Only report classes under these internal-name prefixes, e.g. hudson/model/."`
	Format          string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// ListQuarantinedInput configures list_quarantined.
type ListQuarantinedInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := output.Marshal(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleFindUnused(ctx context.Context, req *mcp.CallToolRequest, input FindUnusedInput) (*mcp.CallToolResult, any, error) {
	report, err := s.svc.FindUnused(ctx, analysis.UnusedOptions{
		Core:            input.Core,
		PluginDir:       input.Plugins,
		Workers:         input.Workers,
		IncludePrefixes: input.IncludePrefixes,
	})
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report, getFormat(input.Format))
}

func (s *Server) handleListQuarantined(ctx context.Context, req *mcp.CallToolRequest, input ListQuarantinedInput) (*mcp.CallToolResult, any, error) {
	entries, err := s.svc.Cache().List()
	if err != nil {
		return toolError(err.Error())
	}
	out := struct {
		Entries []cache.Entry `json:"entries" toon:"entries"`
	}{entries}
	if out.Entries == nil {
		out.Entries = []cache.Entry{}
	}
	return toolResult(out, getFormat(input.Format))
}
