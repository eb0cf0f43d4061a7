package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/orchestrator"
	"github.com/gorewood/docsmith/internal/tokens"
)

// --- Operation tools ---

// BootstrapInput is the input for the bootstrap tool.
type BootstrapInput struct {
	Variables map[string]string `json:"variables,omitempty" jsonschema:"extra template variables"`
}

// ExpandInput is the input for the expand tool.
type ExpandInput struct {
	Concept   string            `json:"concept"             jsonschema:"concept to document (required)"`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"extra template variables"`
}

// AnalyzeInput is the input for the analyze tool.
type AnalyzeInput struct {
	Integration string            `json:"integration"         jsonschema:"integration or service to document (required)"`
	Variables   map[string]string `json:"variables,omitempty" jsonschema:"extra template variables"`
}

// UpdateInput is the input for the update tool.
type UpdateInput struct {
	Section   string            `json:"section"             jsonschema:"section to regenerate (required)"`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"extra template variables"`
}

// IndexInput is the input for the index tool (no parameters needed).
type IndexInput struct{}

// SearchInput is the input for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to search for, case-insensitive (required)"`
}

// handleOperation adapts an orchestrator operation to a tool handler.
// A failed operation is reported as a tool error.
func handleOperation[In any](
	b *Backend,
	op orchestrator.Operation,
	options func(In) orchestrator.Options,
) mcp.ToolHandlerFor[In, orchestrator.Response] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input In) (*mcp.CallToolResult, orchestrator.Response, error) {
		resp := b.Orchestrator.Execute(op, options(input))
		if !resp.Success {
			return nil, orchestrator.Response{}, errors.New(resp.Error)
		}
		return nil, resp, nil
	}
}

// --- Count tokens tool ---

// CountTokensInput is the input for the count_tokens tool.
type CountTokensInput struct {
	Text     string `json:"text,omitempty"     jsonschema:"text to count"`
	Path     string `json:"path,omitempty"     jsonschema:"file to count, relative to the workspace root"`
	Manifest string `json:"manifest,omitempty" jsonschema:"manifest whose default_token_budget to check against"`
	Budget   int    `json:"budget,omitempty"   jsonschema:"explicit token budget"`
}

func handleCountTokens(b *Backend) mcp.ToolHandlerFor[CountTokensInput, tokens.Result] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input CountTokensInput) (*mcp.CallToolResult, tokens.Result, error) {
		if (input.Text == "") == (input.Path == "") {
			return nil, tokens.Result{}, errors.New("specify exactly one of text or path")
		}

		var result tokens.Result
		if input.Path != "" {
			var err error
			result, err = b.Counter.CountFile(b.Root.Path(input.Path))
			if err != nil {
				return nil, tokens.Result{}, err
			}
			result.Path = input.Path
		} else {
			result = b.Counter.Count(input.Text)
		}

		budget, err := resolveBudget(b, input)
		if err != nil {
			return nil, tokens.Result{}, err
		}
		if budget != nil {
			check := tokens.CheckBudget(result.Tokens, budget)
			result.Budget = &check
		}
		return nil, result, nil
	}
}

// resolveBudget returns nil when no budget was requested.
func resolveBudget(b *Backend, input CountTokensInput) (tokens.BudgetSource, error) {
	switch {
	case input.Budget > 0:
		return tokens.Budget(input.Budget), nil
	case input.Manifest != "":
		n, err := manifest.ReadBudget(b.Root.Path(input.Manifest))
		if err != nil {
			return nil, err
		}
		return tokens.Budget(n), nil
	default:
		return nil, nil
	}
}

// --- Validate tool ---

// ValidateInput is the input for the validate_manifest tool.
type ValidateInput struct {
	Paths []string `json:"paths,omitempty" jsonschema:"manifest paths relative to the workspace root; empty means all"`
}

func handleValidate(b *Backend) mcp.ToolHandlerFor[ValidateInput, manifest.BatchReport] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ValidateInput) (*mcp.CallToolResult, manifest.BatchReport, error) {
		dir := b.Root.ManifestPath()
		paths := make([]string, 0, len(input.Paths))
		for _, p := range input.Paths {
			paths = append(paths, b.Root.Path(p))
		}
		if len(paths) == 0 {
			discovered, err := manifest.Discover(dir)
			if err != nil {
				return nil, manifest.BatchReport{}, err
			}
			paths = discovered
		}
		if len(paths) == 0 {
			return nil, manifest.BatchReport{}, fmt.Errorf("no manifests found in %s", b.Root.Rel(dir))
		}

		validator, err := manifest.NewValidatorForDir(dir)
		if err != nil {
			return nil, manifest.BatchReport{}, err
		}
		report := validator.ValidateAll(paths)
		for _, r := range report.Results {
			r.Path = b.Root.Rel(r.Path)
		}
		return nil, *report, nil
	}
}
