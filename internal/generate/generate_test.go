package generate

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

const conceptTemplate = `# {CONCEPT_NAME}

<!-- fill in the overview -->
{{description}}

## Overview

{CONCEPT_NAME} is documented by {OWNER}.

## Related

See {UNSET_LINK}.
`

const conceptManifest = `name: concept
description: Core concept page
category: concept
template_path: ../concept.md
specialist_roles: [developer]
default_token_budget: 500
ai_output_format:
  sections:
    - name: Overview
      priority: 10
lazy_activation_rules:
  - trigger: code question
    condition: query mentions code
    specialist: developer
`

const serviceManifest = `name: service
category: service
template_path: ../service.md
default_token_budget: 500
`

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestGenerator(t *testing.T) (*Generator, workspace.Root) {
	t.Helper()
	root, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	writeFixture(t, root.Path("templates", "concept.md"), conceptTemplate)
	writeFixture(t, root.Path("templates", "service.md"), "# {SERVICE_NAME}\n")
	writeFixture(t, filepath.Join(root.ManifestPath(), "concept.yaml"), conceptManifest)
	writeFixture(t, filepath.Join(root.ManifestPath(), "service.yaml"), serviceManifest)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(root, tokens.NewCounter(nil), WithLogger(logger)), root
}

func TestGenerateFromManifest(t *testing.T) {
	g, root := newTestGenerator(t)
	vars := Variables{"concept_name": "Session Cache", "OWNER": "platform"}

	result, err := g.GenerateFromManifest(filepath.Join(root.ManifestPath(), "concept.yaml"), vars)
	if err != nil {
		t.Fatalf("GenerateFromManifest() error = %v", err)
	}

	if result.HumanPath != "docs/01-core-concepts/session-cache.md" {
		t.Errorf("HumanPath = %q", result.HumanPath)
	}
	if result.AIPath != "docs/ai/01-core-concepts/session-cache.ai.md" {
		t.Errorf("AIPath = %q", result.AIPath)
	}
	if result.Method != tokens.MethodHeuristic || result.Budget != 500 || !result.WithinBudget {
		t.Errorf("result = %+v", result)
	}
	if result.Manifest == nil || result.Manifest.Name != "concept" {
		t.Errorf("Manifest = %+v", result.Manifest)
	}

	human, err := os.ReadFile(root.Path(result.HumanPath))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Session Cache", "Core concept page", "Session Cache is documented by platform.", "See {UNSET_LINK}."} {
		if !strings.Contains(string(human), want) {
			t.Errorf("human doc missing %q:\n%s", want, human)
		}
	}
	if !strings.Contains(string(human), "<!-- fill in the overview -->") {
		t.Error("human doc should keep authoring comments")
	}

	ai, err := os.ReadFile(root.Path(result.AIPath))
	if err != nil {
		t.Fatal(err)
	}
	fm, body, ok, err := ParseFrontmatter(string(ai))
	if err != nil || !ok {
		t.Fatalf("ParseFrontmatter() ok=%v err=%v", ok, err)
	}
	if fm.Manifest != "concept" || fm.Category != workspace.CategoryConcept || fm.TokenBudget != 500 {
		t.Errorf("frontmatter = %+v", fm)
	}
	if fm.Tokens == nil || *fm.Tokens != result.TokenCount {
		t.Errorf("frontmatter tokens = %v, result = %d", fm.Tokens, result.TokenCount)
	}
	if got := g.Counter().Count(strings.TrimSpace(body)).Tokens; got != result.TokenCount {
		t.Errorf("TokenCount = %d, counting the body gives %d", result.TokenCount, got)
	}
	if len(fm.ActivationRules) != 1 || fm.ActivationRules[0].Specialist != manifest.RoleDeveloper {
		t.Errorf("ActivationRules = %+v", fm.ActivationRules)
	}
	if strings.Contains(body, "fill in the overview") {
		t.Error("AI doc should drop HTML comments")
	}
}

func TestGenerateFromManifest_Invalid(t *testing.T) {
	g, root := newTestGenerator(t)
	path := filepath.Join(root.ManifestPath(), "concept.yaml")
	writeFixture(t, path, strings.Replace(conceptManifest, "../concept.md", "../gone.md", 1))

	_, err := g.GenerateFromManifest(path, nil)
	if !errors.Is(err, manifest.ErrInvalid) {
		t.Fatalf("error = %v, want ErrInvalid", err)
	}
	if _, statErr := os.Stat(root.DocsPath()); !os.IsNotExist(statErr) {
		t.Error("no documents should be written for an invalid manifest")
	}
}

func TestGenerateAll_Idempotent(t *testing.T) {
	g, root := newTestGenerator(t)
	vars := Variables{"concept_name": "Caching", "service_name": "Redis"}

	snapshot := func() map[string][]byte {
		files := map[string][]byte{}
		err := filepath.WalkDir(root.DocsPath(), func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := os.ReadFile(path)
			files[root.Rel(path)] = data
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		return files
	}

	first, err := g.GenerateAll(vars)
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}
	if len(first.Results) != 2 || len(first.Failures) != 0 {
		t.Fatalf("first run = %d results, %d failures", len(first.Results), len(first.Failures))
	}
	before := snapshot()

	if _, err := g.GenerateAll(vars); err != nil {
		t.Fatal(err)
	}
	after := snapshot()

	if len(before) != 4 || len(after) != len(before) {
		t.Fatalf("file sets differ: %d vs %d", len(before), len(after))
	}
	for path, data := range before {
		if !bytes.Equal(data, after[path]) {
			t.Errorf("%s changed between runs", path)
		}
	}
}

func TestGenerate_FiltersByCategory(t *testing.T) {
	g, _ := newTestGenerator(t)

	batch, err := g.Generate(Variables{"integration_name": "Stripe"}, workspace.CategoryIntegration, workspace.CategoryService)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Results) != 1 {
		t.Fatalf("Results = %d, want 1", len(batch.Results))
	}
	if got := batch.Results[0].HumanPath; got != "docs/02-integrations/stripe.md" {
		t.Errorf("HumanPath = %q", got)
	}
}

func TestGenerate_SharedTargetInCategory(t *testing.T) {
	g, root := newTestGenerator(t)
	glossary := strings.Replace(conceptManifest, "name: concept", "name: glossary", 1)
	writeFixture(t, filepath.Join(root.ManifestPath(), "glossary.yaml"), glossary)

	batch, err := g.Generate(Variables{"concept_name": "Auth"}, workspace.CategoryConcept)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Results) != 2 || len(batch.Failures) != 0 {
		t.Fatalf("Results = %d, Failures = %+v; want 2 results", len(batch.Results), batch.Failures)
	}
	want := []string{"docs/01-core-concepts/auth-concept.md", "docs/01-core-concepts/auth-glossary.md"}
	for i, r := range batch.Results {
		if r.HumanPath != want[i] {
			t.Errorf("HumanPath[%d] = %q, want %q", i, r.HumanPath, want[i])
		}
		if _, err := os.Stat(root.Path(r.AIPath)); err != nil {
			t.Errorf("AI doc %s: %v", r.AIPath, err)
		}
	}
}

func TestGenerate_DuplicateOutputFails(t *testing.T) {
	g, root := newTestGenerator(t)
	writeFixture(t, filepath.Join(root.ManifestPath(), "concept-copy.yaml"), conceptManifest)

	batch, err := g.Generate(Variables{"concept_name": "Auth"}, workspace.CategoryConcept)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Results) != 1 {
		t.Fatalf("Results = %d, want 1", len(batch.Results))
	}
	if len(batch.Failures) != 1 || !strings.Contains(batch.Failures[0].Error, ErrDuplicateOutput.Error()) {
		t.Fatalf("Failures = %+v, want one duplicate output", batch.Failures)
	}
	if batch.Failures[0].Path != "templates/ai-optimized/concept.yaml" {
		t.Errorf("Failure path = %q", batch.Failures[0].Path)
	}
}

func TestGenerateAll_IsolatesFailures(t *testing.T) {
	g, root := newTestGenerator(t)
	writeFixture(t, filepath.Join(root.ManifestPath(), "broken.yaml"), "description: no required fields\n")
	writeFixture(t, filepath.Join(root.ManifestPath(), manifest.SchemaFileName), string(manifest.DefaultSchema()))

	batch, err := g.GenerateAll(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Results) != 2 {
		t.Errorf("Results = %d, want 2", len(batch.Results))
	}
	if len(batch.Failures) != 1 {
		t.Fatalf("Failures = %+v, want 1", batch.Failures)
	}
	f := batch.Failures[0]
	if f.Path != "templates/ai-optimized/broken.yaml" || len(f.Errors) < 3 {
		t.Errorf("Failure = %+v", f)
	}
	if batch.TotalTokens() != batch.Results[0].TokenCount+batch.Results[1].TokenCount {
		t.Error("TotalTokens should sum the results")
	}
}

func TestGenerateAll_MissingManifestDir(t *testing.T) {
	root, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(root, nil).GenerateAll(nil); err == nil {
		t.Error("GenerateAll() without a manifest directory should fail")
	}
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		header string
		body   string
	}{
		{"with header", "---\ntokens: 3\n---\n\nbody\n", "tokens: 3", "body\n"},
		{"no header", "# Title\n", "", "# Title\n"},
		{"unterminated", "---\ntokens: 3\n", "", "---\ntokens: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body := SplitFrontmatter(tt.raw)
			if header != tt.header || body != tt.body {
				t.Errorf("SplitFrontmatter() = %q, %q", header, body)
			}
		})
	}
}
