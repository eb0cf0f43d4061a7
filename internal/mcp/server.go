// Package mcp provides a Model Context Protocol server for docsmith.
// It exposes the generation pipeline, token counting and manifest validation
// as MCP tools that any MCP-capable agent can use.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/docsmith/internal/orchestrator"
	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// Backend is what the tools operate on.
type Backend struct {
	Root         workspace.Root
	Orchestrator *orchestrator.Orchestrator
	Counter      *tokens.Counter
}

// NewServer creates an MCP server with all docsmith tools registered.
func NewServer(version string, backend *Backend) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docsmith",
		Version: version,
	}, nil)
	registerTools(server, backend)
	return server
}

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations returns annotations for read-only tools.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// writeAnnotations returns annotations for tools that regenerate files.
// Regeneration overwrites its own output and nothing else.
func writeAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(false),
		IdempotentHint:  true,
		OpenWorldHint:   boolPtr(false),
	}
}

// registerTools adds all docsmith tools to the server.
func registerTools(server *mcp.Server, b *Backend) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        orchestrator.OpBootstrap.String(),
		Description: orchestrator.OpBootstrap.Description() + ". Returns generated paths, token totals and any failed manifests.",
		Annotations: writeAnnotations(),
	}, handleOperation(b, orchestrator.OpBootstrap, func(in BootstrapInput) orchestrator.Options {
		return orchestrator.Options{Variables: in.Variables}
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        orchestrator.OpExpand.String(),
		Description: orchestrator.OpExpand.Description() + ", binding concept_name to the concept.",
		Annotations: writeAnnotations(),
	}, handleOperation(b, orchestrator.OpExpand, func(in ExpandInput) orchestrator.Options {
		return orchestrator.Options{Target: in.Concept, Variables: in.Variables}
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        orchestrator.OpAnalyze.String(),
		Description: orchestrator.OpAnalyze.Description() + ", binding integration_name and service_name.",
		Annotations: writeAnnotations(),
	}, handleOperation(b, orchestrator.OpAnalyze, func(in AnalyzeInput) orchestrator.Options {
		return orchestrator.Options{Target: in.Integration, Variables: in.Variables}
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        orchestrator.OpUpdate.String(),
		Description: orchestrator.OpUpdate.Description() + ", binding section_name to the section.",
		Annotations: writeAnnotations(),
	}, handleOperation(b, orchestrator.OpUpdate, func(in UpdateInput) orchestrator.Options {
		return orchestrator.Options{Target: in.Section, Variables: in.Variables}
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        orchestrator.OpIndex.String(),
		Description: orchestrator.OpIndex.Description() + " at docs/ai/MASTER-INDEX.md from the AI documents on disk.",
		Annotations: writeAnnotations(),
	}, handleOperation(b, orchestrator.OpIndex, func(IndexInput) orchestrator.Options {
		return orchestrator.Options{}
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        orchestrator.OpSearch.String(),
		Description: "Case-insensitive search over the human and AI documents. Returns up to 5 matching lines per file with one line of context.",
		Annotations: readOnlyAnnotations(),
	}, handleOperation(b, orchestrator.OpSearch, func(in SearchInput) orchestrator.Options {
		return orchestrator.Options{Target: in.Query}
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "count_tokens",
		Description: "Count tokens in text or a workspace file, optionally checking a manifest's budget or an explicit budget.",
		Annotations: readOnlyAnnotations(),
	}, handleCountTokens(b))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_manifest",
		Description: "Validate manifests against the schema. With no paths, validates every manifest in the manifest directory.",
		Annotations: readOnlyAnnotations(),
	}, handleValidate(b))
}
