package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorewood/docsmith/internal/output"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTokens_Plain(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, "doc.md", "one two three")

	out, _, err := execute(t, "tokens", "doc.md", "--root", dir)
	if err != nil {
		t.Fatalf("tokens error = %v", err)
	}
	if !strings.HasPrefix(out, "4 tokens (heuristic") {
		t.Errorf("output = %q", out)
	}
}

func TestTokens_JSONWithinBudget(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, "doc.md", "one two three")

	out, _, err := execute(t, "tokens", "doc.md", "--root", dir, "--format", "json", "--budget", "10")
	if err != nil {
		t.Fatalf("tokens error = %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output should be JSON: %v, got %q", err, out)
	}
	if result["tokens"].(float64) != 4 || result["path"] != "doc.md" {
		t.Errorf("result = %v", result)
	}
	budget := result["budget_validation"].(map[string]any)
	if budget["within_budget"] != true || budget["remaining"].(float64) != 6 {
		t.Errorf("budget_validation = %v", budget)
	}
}

func TestTokens_OverBudgetExitsOne(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, "doc.md", "one two three")

	out, _, err := execute(t, "--json", "tokens", "doc.md", "--root", dir, "--budget", "3")
	if err == nil {
		t.Fatal("expected error when over budget")
	}
	if code := output.GetExitCode(err); code != output.ExitFailure {
		t.Errorf("exit code = %d, want %d", code, output.ExitFailure)
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("result should still be printed as JSON: %v, got %q", err, out)
	}
	if result["budget_validation"].(map[string]any)["within_budget"] != false {
		t.Errorf("result = %v", result)
	}
}

func TestTokens_NoBudgetNeverFails(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, "big.md", strings.Repeat("word ", 10000))

	if _, _, err := execute(t, "tokens", "big.md", "--root", dir); err != nil {
		t.Errorf("tokens without a budget should succeed, got %v", err)
	}
}

func TestTokens_ManifestBudget(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, "doc.md", "one two three")
	writeDoc(t, dir, "budget.yaml", "budget: 2\n")

	out, _, err := execute(t, "tokens", "doc.md", "--root", dir, "--manifest", "budget.yaml")
	if err == nil {
		t.Fatal("expected error when over the manifest budget")
	}
	if !strings.Contains(out, "over budget") {
		t.Errorf("output = %q", out)
	}
}

func TestTokens_Stdin(t *testing.T) {
	isolate(t)
	cmd := newRootCmd()
	stdout := new(strings.Builder)
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	cmd.SetIn(strings.NewReader("one two three"))
	cmd.SetArgs([]string{"tokens", "-", "--root", t.TempDir(), "--format", "json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("tokens error = %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(stdout.String()), &result); err != nil {
		t.Fatalf("output should be JSON: %v", err)
	}
	if result["tokens"].(float64) != 4 || result["path"] != "-" {
		t.Errorf("result = %v", result)
	}
}

func TestTokens_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, "bin.dat", "abc\x00def")
	writeDoc(t, dir, "doc.md", "text")

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"tokens", "nope.md", "--root", dir}},
		{"binary file", []string{"tokens", "bin.dat", "--root", dir}},
		{"bad format", []string{"tokens", "bin.dat", "--root", dir, "--format", "xml"}},
		{"missing manifest", []string{"tokens", "doc.md", "--root", dir, "--manifest", "nope.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if code := output.GetExitCode(err); code != output.ExitFailure {
				t.Errorf("exit code = %d, want %d (err %v)", code, output.ExitFailure, err)
			}
		})
	}
}

func TestTokens_HelpExplainsBodyCounts(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "tokens", "--help")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "count only the document body") {
		t.Errorf("help should explain frontmatter counting:\n%s", out)
	}
}
