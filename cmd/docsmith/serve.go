package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	docsmithmcp "github.com/gorewood/docsmith/internal/mcp"
	"github.com/gorewood/docsmith/internal/output"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run docsmith as a Model Context Protocol (MCP) server over stdio.

This exposes docsmith operations as MCP tools that any MCP-capable agent
environment can use (Claude Code, Cursor, Windsurf, Gemini CLI, etc).

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "docsmith": {
        "command": "docsmith",
        "args": ["serve", "--root", "/path/to/project"]
      }
    }
  }

Logs go to stderr; stdout carries the protocol.

Available tools: bootstrap, expand, analyze, update, index, search,
count_tokens, validate_manifest`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadCmdEnv(cmd)
			if err != nil {
				return err
			}
			backend := &docsmithmcp.Backend{
				Root:         e.root,
				Orchestrator: e.newOrchestrator(),
				Counter:      e.counter,
			}
			e.logger.Debug("serving MCP over stdio", "root", e.root.Dir())
			server := docsmithmcp.NewServer(buildVersion(), backend)
			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				return output.NewSystemErrorWithCause("mcp server: "+err.Error(), err)
			}
			return nil
		},
	}
}
