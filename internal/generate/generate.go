package generate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// File modes for generated output.
const (
	fileMode = 0o644
	dirMode  = 0o755
)

// ErrDuplicateOutput marks a manifest whose documents would overwrite another
// manifest's in the same batch.
var ErrDuplicateOutput = errors.New("duplicate output path")

// Result describes the documents generated from one manifest.
type Result struct {
	HumanPath         string             `json:"human_path"`
	AIPath            string             `json:"ai_path"`
	TokenCount        int                `json:"token_count"`
	Method            tokens.Method      `json:"method"`
	Budget            int                `json:"budget"`
	WithinBudget      bool               `json:"within_budget"`
	DroppedSections   []string           `json:"dropped_sections,omitempty"`
	TruncatedSections []string           `json:"truncated_sections,omitempty"`
	Manifest          *manifest.Manifest `json:"manifest"`
}

// Failure records a manifest that could not be generated.
type Failure struct {
	Path   string   `json:"path"`
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// BatchResult collects the outcome of generating several manifests.
type BatchResult struct {
	Results  []*Result `json:"results"`
	Failures []Failure `json:"failures"`
}

// TotalTokens sums the AI document token counts.
func (b *BatchResult) TotalTokens() int {
	total := 0
	for _, r := range b.Results {
		total += r.TokenCount
	}
	return total
}

// Generator writes human and AI documents for manifests under a workspace.
type Generator struct {
	root    workspace.Root
	counter *tokens.Counter
	logger  *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for per-manifest failures.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New returns a Generator for root. A nil counter uses the heuristic strategy.
func New(root workspace.Root, counter *tokens.Counter, opts ...Option) *Generator {
	if counter == nil {
		counter = tokens.NewCounter(nil)
	}
	g := &Generator{root: root, counter: counter, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Root returns the generator's workspace.
func (g *Generator) Root() workspace.Root { return g.root }

// Counter returns the generator's token counter.
func (g *Generator) Counter() *tokens.Counter { return g.counter }

// GenerateFromManifest validates the manifest at path and writes its documents.
// An invalid manifest returns a *manifest.InvalidError.
func (g *Generator) GenerateFromManifest(path string, vars Variables) (*Result, error) {
	m, _, err := manifest.Load(g.root.Path(path))
	if err != nil {
		return nil, err
	}
	return g.generate(m, vars, outputSlug(m, vars))
}

// GenerateAll generates every manifest in the workspace manifest directory.
func (g *Generator) GenerateAll(vars Variables) (*BatchResult, error) {
	return g.Generate(vars)
}

// Generate generates the manifests in the manifest directory whose category
// is one of cats, or all of them when cats is empty. A failing manifest is
// logged and recorded without stopping the batch; invalid manifests are
// reported whatever their category. Manifests sharing a category directory
// and target get the manifest name appended to their file names.
func (g *Generator) Generate(vars Variables, cats ...workspace.Category) (*BatchResult, error) {
	dir := g.root.ManifestPath()
	paths, err := manifest.Discover(dir)
	if err != nil {
		return nil, err
	}
	validator, err := manifest.NewValidatorForDir(dir)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Results: []*Result{}, Failures: []Failure{}}
	var selected []planned
	for _, path := range paths {
		m, _, err := validator.Load(path)
		if err != nil {
			g.fail(batch, path, err)
			continue
		}
		if len(cats) > 0 && !m.HasCategory(cats...) {
			g.logger.Debug("skipping manifest", "path", g.root.Rel(path), "category", m.Category)
			continue
		}
		selected = append(selected, planned{path: path, manifest: m, slug: outputSlug(m, vars)})
	}
	disambiguate(selected)

	written := make(map[string]string, len(selected))
	for _, p := range selected {
		key := filepath.Join(p.manifest.Category.Dir(), p.slug)
		if owner, ok := written[key]; ok {
			g.fail(batch, p.path, fmt.Errorf("%w: %s.md is already written by %s", ErrDuplicateOutput, key, owner))
			continue
		}
		written[key] = g.root.Rel(p.path)

		result, err := g.generate(p.manifest, vars, p.slug)
		if err != nil {
			g.fail(batch, p.path, err)
			continue
		}
		batch.Results = append(batch.Results, result)
	}
	return batch, nil
}

// planned is a selected manifest and the file name its documents get.
type planned struct {
	path     string
	manifest *manifest.Manifest
	slug     string
}

// disambiguate suffixes the manifest name onto slugs shared by several
// manifests in the same category directory.
func disambiguate(selected []planned) {
	counts := make(map[string]int, len(selected))
	for _, p := range selected {
		counts[filepath.Join(p.manifest.Category.Dir(), p.slug)]++
	}
	for i, p := range selected {
		if counts[filepath.Join(p.manifest.Category.Dir(), p.slug)] > 1 {
			selected[i].slug = p.slug + "-" + Slugify(p.manifest.Name)
		}
	}
}

func (g *Generator) fail(batch *BatchResult, path string, err error) {
	g.logger.Warn("manifest failed", "path", g.root.Rel(path), "error", err)
	batch.Failures = append(batch.Failures, newFailure(g.root.Rel(path), err))
}

// outputSlug names the documents for m: the target name when one is bound,
// else the manifest name.
func outputSlug(m *manifest.Manifest, vars Variables) string {
	slug := Slugify(TargetName(vars, m.Name))
	if slug == "" {
		slug = Slugify(m.Name)
	}
	return slug
}

func newFailure(path string, err error) Failure {
	f := Failure{Path: path, Error: err.Error()}
	var invalid *manifest.InvalidError
	if errors.As(err, &invalid) {
		f.Error = manifest.ErrInvalid.Error()
		f.Errors = invalid.Errors
	}
	return f
}

func (g *Generator) generate(m *manifest.Manifest, vars Variables, slug string) (*Result, error) {
	raw, err := os.ReadFile(m.TemplateFile())
	if err != nil {
		return nil, fmt.Errorf("reading template for %s: %w", m.Name, err)
	}

	vars = Merge(Variables{
		"manifest_name": m.Name,
		"description":   m.Description,
		"category":      string(m.Category),
	}, vars)
	human := Substitute(string(raw), vars)

	dir := m.Category.Dir()
	humanPath := filepath.Join(g.root.DocsPath(), dir, slug+".md")
	aiPath := filepath.Join(g.root.AIDocsPath(), dir, slug+workspace.AIDocSuffix)

	rendering := RenderAI(g.counter, m, human)
	aiDoc, err := aiDocument(m, g.counter.Strategy().Method(), rendering)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", m.Name, err)
	}

	if err := writeFile(humanPath, human); err != nil {
		return nil, err
	}
	if err := writeFile(aiPath, aiDoc); err != nil {
		return nil, err
	}

	budget := tokens.ResolveBudget(m)
	g.logger.Debug("generated", "manifest", m.Name, "human", g.root.Rel(humanPath),
		"ai", g.root.Rel(aiPath), "tokens", rendering.Tokens, "budget", budget)

	return &Result{
		HumanPath:         g.root.Rel(humanPath),
		AIPath:            g.root.Rel(aiPath),
		TokenCount:        rendering.Tokens,
		Method:            g.counter.Strategy().Method(),
		Budget:            budget,
		WithinBudget:      rendering.Tokens <= budget,
		DroppedSections:   rendering.Dropped,
		TruncatedSections: rendering.Truncated,
		Manifest:          m,
	}, nil
}

// Frontmatter is the YAML header of an AI document. Tokens is nil when the
// header carries no stored count.
type Frontmatter struct {
	Manifest        string                    `yaml:"manifest"`
	Category        workspace.Category        `yaml:"category"`
	TokenBudget     int                       `yaml:"token_budget"`
	Tokens          *int                      `yaml:"tokens,omitempty"`
	Method          tokens.Method             `yaml:"method"`
	Specialists     []manifest.Role           `yaml:"specialists,omitempty"`
	ActivationRules []manifest.ActivationRule `yaml:"activation_rules,omitempty"`
	DroppedSections []string                  `yaml:"dropped_sections,omitempty"`
}

func aiDocument(m *manifest.Manifest, method tokens.Method, r Rendering) (string, error) {
	header, err := yaml.Marshal(Frontmatter{
		Manifest:        m.Name,
		Category:        m.Category,
		TokenBudget:     tokens.ResolveBudget(m),
		Tokens:          &r.Tokens,
		Method:          method,
		Specialists:     m.SpecialistRoles,
		ActivationRules: m.LazyActivationRules,
		DroppedSections: r.Dropped,
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(r.Body)
	b.WriteString("\n")
	return b.String(), nil
}

// SplitFrontmatter separates a leading --- delimited YAML block from the body.
func SplitFrontmatter(raw string) (frontmatter, body string) {
	if !strings.HasPrefix(raw, "---\n") {
		return "", raw
	}
	before, after, ok := strings.Cut(raw[4:], "\n---\n")
	if !ok {
		return "", raw
	}
	return before, strings.TrimLeft(after, "\n")
}

// ParseFrontmatter decodes the frontmatter of an AI document. ok is false
// when raw has none.
func ParseFrontmatter(raw string) (fm Frontmatter, body string, ok bool, err error) {
	header, body := SplitFrontmatter(raw)
	if header == "" {
		return Frontmatter{}, body, false, nil
	}
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Frontmatter{}, body, false, fmt.Errorf("parsing frontmatter: %w", err)
	}
	return fm, body, true, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), fileMode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
