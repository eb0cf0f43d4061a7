//go:build integration

// Package integration provides integration tests for the docsmith CLI.
// These tests build the binary and run full command workflows against
// temporary projects.
//
// Run with: go test -tags=integration ./internal/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// testProject is a helper for running docsmith against a temp project.
type testProject struct {
	t      *testing.T
	dir    string
	binary string
	env    []string
}

// newTestProject builds the docsmith binary and creates an empty project.
func newTestProject(t *testing.T) *testProject {
	t.Helper()

	bin := t.TempDir()
	binary := filepath.Join(bin, "docsmith")
	buildCmd := exec.Command("go", "build", "-o", binary, "./cmd/docsmith")
	buildCmd.Dir = findProjectRoot(t)
	buildCmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build docsmith: %v\n%s", err, output)
	}

	env := make([]string, 0, len(os.Environ())+2)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "DOCSMITH_") {
			env = append(env, kv)
		}
	}
	env = append(env, "DOCSMITH_CONFIG_HOME="+t.TempDir())

	return &testProject{
		t:      t,
		dir:    t.TempDir(),
		binary: binary,
		env:    env,
	}
}

// findProjectRoot locates the project root by finding go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createFile creates a file with the given content.
func (p *testProject) createFile(name, content string) {
	p.t.Helper()

	path := filepath.Join(p.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		p.t.Fatalf("failed to write file %s: %v", name, err)
	}
}

// readFile returns a project file's content.
func (p *testProject) readFile(name string) string {
	p.t.Helper()

	data, err := os.ReadFile(filepath.Join(p.dir, name))
	if err != nil {
		p.t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// docsmith runs the binary in the project directory.
// Returns stdout, stderr and the exit code.
func (p *testProject) docsmith(args ...string) (string, string, int) {
	p.t.Helper()

	cmd := exec.Command(p.binary, args...)
	cmd.Dir = p.dir
	cmd.Env = p.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		p.t.Fatalf("docsmith %v could not run: %v", args, err)
	}
	return stdout.String(), stderr.String(), code
}

// docsmithOK runs docsmith and expects success.
func (p *testProject) docsmithOK(args ...string) string {
	p.t.Helper()

	stdout, stderr, code := p.docsmith(args...)
	if code != 0 {
		p.t.Fatalf("docsmith %v exited %d\nstdout: %s\nstderr: %s", args, code, stdout, stderr)
	}
	return stdout
}

// docsmithCode runs docsmith and expects the given exit code.
func (p *testProject) docsmithCode(want int, args ...string) string {
	p.t.Helper()

	stdout, stderr, code := p.docsmith(args...)
	if code != want {
		p.t.Fatalf("docsmith %v exited %d, want %d\nstdout: %s\nstderr: %s", args, code, want, stdout, stderr)
	}
	return stdout
}

// response decodes an operation's JSON response.
func (p *testProject) response(out string) map[string]any {
	p.t.Helper()

	var resp map[string]any
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		p.t.Fatalf("expected one JSON object: %v\n%s", err, out)
	}
	return resp
}

// TestInitBootstrapValidateCycle tests the full workflow:
// init -> validate -> bootstrap -> index present -> tokens within budget.
func TestInitBootstrapValidateCycle(t *testing.T) {
	p := newTestProject(t)

	p.docsmithOK("init")
	p.docsmithOK("validate")

	resp := p.response(p.docsmithOK("bootstrap", "--project_name", "Acme"))
	if resp["success"] != true {
		t.Fatalf("bootstrap response = %v", resp)
	}
	result := resp["result"].(map[string]any)
	aiDocs := result["aiDocs"].([]any)
	if len(aiDocs) != 4 {
		t.Fatalf("aiDocs = %v, want 4", aiDocs)
	}

	index := p.readFile("docs/ai/MASTER-INDEX.md")
	for _, doc := range aiDocs {
		rel := strings.TrimPrefix(doc.(string), "docs/ai/")
		if !strings.Contains(index, rel) {
			t.Errorf("index should list %s:\n%s", rel, index)
		}
	}

	p.docsmithOK("tokens", aiDocs[0].(string), "--budget", "100000")
}

// TestExpandThenSearch tests that a generated concept is searchable.
func TestExpandThenSearch(t *testing.T) {
	p := newTestProject(t)
	p.docsmithOK("init")

	p.docsmithOK("expand", "Circuit Breakers")

	resp := p.response(p.docsmithOK("run", "search", "circuit breakers"))
	result := resp["result"].(map[string]any)
	if result["totalMatches"].(float64) == 0 {
		t.Errorf("search found nothing: %v", result)
	}
}

// TestExitCodes checks the documented exit codes.
func TestExitCodes(t *testing.T) {
	p := newTestProject(t)

	resp := p.response(p.docsmithCode(1, "bootstrap"))
	if !strings.Contains(resp["error"].(string), "docsmith init") {
		t.Errorf("error = %v", resp["error"])
	}

	p.docsmithOK("init")
	p.docsmithCode(1, "expand")
	p.docsmithCode(1, "run", "publish")

	p.createFile("templates/ai-optimized/broken.yaml", "name: 42\n")
	p.docsmithCode(2, "validate")
	p.createFile("templates/ai-optimized/malformed.yaml", "name: [unclosed\n")
	p.docsmithCode(1, "validate")
	p.docsmithCode(1, "validate", "templates/ai-optimized/missing.yaml")

	p.createFile("notes.md", "one two three four five")
	p.docsmithCode(1, "tokens", "notes.md", "--budget", "2")
}

// TestConfigAndEnvFiles checks .docsmith.yaml and .env are honoured.
func TestConfigAndEnvFiles(t *testing.T) {
	p := newTestProject(t)
	p.createFile(".docsmith.yaml", "docs_dir: documentation\nvariables:\n  project_name: Acme\n")
	p.createFile(".env", "DOCSMITH_TOKENIZER=heuristic\n")
	p.docsmithOK("init")

	p.docsmithOK("bootstrap")
	if _, err := os.Stat(filepath.Join(p.dir, "documentation", "ai", "MASTER-INDEX.md")); err != nil {
		t.Fatalf("index not under configured docs dir: %v", err)
	}

	p.createFile("notes.md", "one two three")
	var result map[string]any
	if err := json.Unmarshal([]byte(p.docsmithOK("tokens", "notes.md", "--format", "json")), &result); err != nil {
		t.Fatal(err)
	}
	if result["method"] != "heuristic" {
		t.Errorf("method = %v, want heuristic from .env", result["method"])
	}
}

// TestSetupRoundTrip installs and removes the assistant section.
func TestSetupRoundTrip(t *testing.T) {
	p := newTestProject(t)
	p.createFile("CLAUDE.md", "# Rules\n")

	p.docsmithOK("setup")
	p.docsmithOK("setup")
	if n := strings.Count(p.readFile("CLAUDE.md"), "BEGIN docsmith"); n != 1 {
		t.Fatalf("section count = %d, want 1", n)
	}

	p.docsmithOK("setup", "claude", "--remove")
	if got := p.readFile("CLAUDE.md"); strings.Contains(got, "docsmith") {
		t.Errorf("section not removed: %q", got)
	}
}
