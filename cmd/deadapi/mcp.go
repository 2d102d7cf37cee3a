package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/deadapi/internal/cache"
	"github.com/panbanda/deadapi/internal/mcpserver"
	"github.com/panbanda/deadapi/internal/service/analysis"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes the unused-method
analysis as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "deadapi": {
        "command": "deadapi",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - find_unused_methods   Core methods no plugin, core class or template uses
  - list_quarantined      Plugin archives skipped because they were unreadable`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry server.json manifest",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	qc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return err
	}
	svc := analysis.New(
		analysis.WithConfig(cfg),
		analysis.WithCache(qc),
		analysis.WithLogger(slog.Default()),
	)
	server := mcpserver.NewServer(version, svc)
	return server.Run(context.Background())
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
