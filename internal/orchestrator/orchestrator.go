// Package orchestrator sequences generation, indexing and search behind a
// closed set of named operations.
//
// Every call is stateless: it checks the installation, runs one handler and
// returns a Response. Failures of any kind, panics included, come back as a
// Response with Success false rather than as Go errors.
package orchestrator

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorewood/docsmith/internal/generate"
	"github.com/gorewood/docsmith/internal/index"
	"github.com/gorewood/docsmith/internal/workspace"
)

// Options are the inputs to an operation.
type Options struct {
	// Target is the concept, integration, section or query.
	Target    string             `json:"target,omitempty"`
	Variables generate.Variables `json:"variables,omitempty"`
}

// Response is the outcome of one operation.
type Response struct {
	Success          bool      `json:"success"`
	Command          string    `json:"command"`
	Options          Options   `json:"options"`
	Result           any       `json:"result,omitempty"`
	Error            string    `json:"error,omitempty"`
	Duration         string    `json:"duration"`
	Timestamp        time.Time `json:"timestamp"`
	WorkingDirectory string    `json:"workingDirectory"`
}

// GenerationReport is the result of bootstrap, expand, analyze and update.
type GenerationReport struct {
	Target         string             `json:"target,omitempty"`
	HumanDocs      []string           `json:"humanDocs"`
	AIDocs         []string           `json:"aiDocs"`
	HumanDocsCount int                `json:"humanDocsCount"`
	AIDocsCount    int                `json:"aiDocsCount"`
	TotalTokens    int                `json:"totalTokens"`
	OverBudget     []string           `json:"overBudget,omitempty"`
	Results        []*generate.Result `json:"results"`
	Failures       []generate.Failure `json:"failures,omitempty"`
	Index          *index.Summary     `json:"index"`
}

// Orchestrator runs operations against one workspace.
type Orchestrator struct {
	root      workspace.Root
	generator *generate.Generator
	indexer   *index.Builder
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the response timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New returns an Orchestrator using generator and indexer, which must share root.
func New(root workspace.Root, generator *generate.Generator, indexer *index.Builder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		root:      root,
		generator: generator,
		indexer:   indexer,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExecuteCommand parses name and runs the operation. An unknown name yields
// a failed Response.
func (o *Orchestrator) ExecuteCommand(name string, opts Options) Response {
	op, err := ParseOperation(name)
	if err != nil {
		start := o.now()
		return o.respond(name, opts, start, nil, err)
	}
	return o.Execute(op, opts)
}

// Execute runs op. It never panics.
func (o *Orchestrator) Execute(op Operation, opts Options) (resp Response) {
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("operation panicked", "command", op.String(), "panic", r)
			resp = o.respond(op.String(), opts, start, nil, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err := o.run(op, opts)
	if err != nil {
		o.logger.Debug("operation failed", "command", op.String(), "error", err)
	}
	return o.respond(op.String(), opts, start, result, err)
}

func (o *Orchestrator) run(op Operation, opts Options) (any, error) {
	target := strings.TrimSpace(opts.Target)
	if param := op.Parameter(); param != "" {
		if target == "" {
			target = strings.TrimSpace(opts.Variables[param])
		}
		if target == "" {
			return nil, fmt.Errorf("%w: %s (usage: %s <%s>)", ErrMissingParameter, param, op, param)
		}
	}
	if err := o.root.CheckInstallation(); err != nil {
		return nil, err
	}

	switch op {
	case OpBootstrap:
		return o.bootstrap(opts.Variables)
	case OpExpand:
		return o.regenerate(target, opts.Variables, "concept_name",
			workspace.CategoryConcept, workspace.CategoryGeneral, workspace.CategorySection)
	case OpAnalyze:
		return o.analyze(target, opts.Variables)
	case OpUpdate:
		return o.regenerate(target, opts.Variables, "section_name",
			workspace.CategoryConcept, workspace.CategoryGeneral, workspace.CategorySection)
	case OpIndex:
		return o.indexer.Update()
	case OpSearch:
		return Search(o.root, target, o.logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, op)
	}
}

func (o *Orchestrator) bootstrap(vars generate.Variables) (*GenerationReport, error) {
	batch, err := o.generator.GenerateAll(vars)
	if err != nil {
		return nil, err
	}
	return o.finish("", batch)
}

// regenerate binds target to key and generates the manifests in cats.
// expand and update differ only in key.
func (o *Orchestrator) regenerate(target string, vars generate.Variables, key string, cats ...workspace.Category) (*GenerationReport, error) {
	batch, err := o.generator.Generate(generate.Merge(vars, generate.Variables{key: target}), cats...)
	if err != nil {
		return nil, err
	}
	return o.finish(target, batch)
}

func (o *Orchestrator) analyze(target string, vars generate.Variables) (*GenerationReport, error) {
	bound := generate.Merge(vars, generate.Variables{
		"integration_name": target,
		"service_name":     target,
	})
	batch, err := o.generator.Generate(bound, workspace.CategoryIntegration, workspace.CategoryService)
	if err != nil {
		return nil, err
	}
	return o.finish(target, batch)
}

// finish rebuilds the index and aggregates the batch.
func (o *Orchestrator) finish(target string, batch *generate.BatchResult) (*GenerationReport, error) {
	summary, err := o.indexer.Update()
	if err != nil {
		return nil, err
	}

	report := &GenerationReport{
		Target:    target,
		HumanDocs: []string{},
		AIDocs:    []string{},
		Results:   batch.Results,
		Failures:  batch.Failures,
		Index:     summary,
	}
	for _, r := range batch.Results {
		report.HumanDocs = append(report.HumanDocs, r.HumanPath)
		report.AIDocs = append(report.AIDocs, r.AIPath)
		report.TotalTokens += r.TokenCount
		if !r.WithinBudget {
			report.OverBudget = append(report.OverBudget, r.AIPath)
		}
	}
	report.HumanDocsCount = len(report.HumanDocs)
	report.AIDocsCount = len(report.AIDocs)
	return report, nil
}

func (o *Orchestrator) respond(command string, opts Options, start time.Time, result any, err error) Response {
	elapsed := o.now().Sub(start)
	resp := Response{
		Success:          err == nil,
		Command:          command,
		Options:          opts,
		Duration:         fmt.Sprintf("%dms", elapsed.Milliseconds()),
		Timestamp:        start.UTC(),
		WorkingDirectory: o.root.Dir(),
	}
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Result = result
	return resp
}
