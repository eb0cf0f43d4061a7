package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gorewood/docsmith/internal/output"
	"github.com/gorewood/docsmith/internal/scaffold"
	"github.com/gorewood/docsmith/internal/workspace"
)

// isolate keeps tests away from the user's config dir and tokenizer setup.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("DOCSMITH_CONFIG_HOME", t.TempDir())
	t.Setenv("DOCSMITH_TOKENIZER", "heuristic")
	t.Setenv("DOCSMITH_MODEL", "")
	t.Setenv(envLogLevel, "")
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// installedWorkspace returns a temp dir with the docsmith layout installed.
func installedWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	root, err := workspace.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := scaffold.Install(root, scaffold.Options{}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	return dir
}

func TestRootCommand_Version(t *testing.T) {
	version = "1.2.3"
	defer func() { version = "dev" }()

	out, _, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "1.2.3") {
		t.Errorf("--version output should contain version: %q", out)
	}
	if !strings.Contains(out, "docsmith") {
		t.Errorf("--version output should contain 'docsmith': %q", out)
	}
}

func TestRootCommand_Help(t *testing.T) {
	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	expectations := []string{
		"docsmith",
		"Usage:",
		"--json",
		"--root",
		"--color",
		"bootstrap",
		"validate",
	}
	for _, expected := range expectations {
		if !strings.Contains(out, expected) {
			t.Errorf("--help output should contain %q: %q", expected, out)
		}
	}
}

func TestRootCommand_JSONFlag_NoSubcommand(t *testing.T) {
	out, _, err := execute(t, "--json")
	if err == nil {
		t.Fatal("Expected error when running with --json but no subcommand")
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output should be JSON: %v, got %q", err, out)
	}
	if _, ok := result["error"]; !ok {
		t.Errorf("JSON output should contain 'error' key: %v", result)
	}
}

func TestRootCommand_InvalidColor(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--color", "sometimes", "validate")
	if err == nil {
		t.Fatal("expected error for invalid --color")
	}
	if code := output.GetExitCode(err); code != output.ExitFailure {
		t.Errorf("exit code = %d, want %d", code, output.ExitFailure)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	want := []string{
		"bootstrap", "expand", "analyze", "update", "index", "search", "run",
		"tokens", "validate", "init", "setup", "doctor", "serve",
	}
	for _, name := range want {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestBuildVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		date    string
		want    string
	}{
		{name: "dev build", version: "dev", commit: "none", date: "unknown", want: "dev"},
		{name: "release", version: "1.0.0", commit: "abcdef1234567", date: "2026-01-01", want: "1.0.0 (abcdef1, 2026-01-01)"},
		{name: "short commit", version: "1.0.0", commit: "abc", date: "2026-01-01", want: "1.0.0 (abc, 2026-01-01)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldV, oldC, oldD := version, commit, date
			defer func() { version, commit, date = oldV, oldC, oldD }()
			version, commit, date = tt.version, tt.commit, tt.date

			if got := buildVersion(); got != tt.want {
				t.Errorf("buildVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}
