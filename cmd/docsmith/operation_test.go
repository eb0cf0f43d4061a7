package main

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorewood/docsmith/internal/generate"
	"github.com/gorewood/docsmith/internal/output"
)

func TestParseOperationArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    operationArgs
		wantErr bool
	}{
		{
			name: "empty",
			want: operationArgs{variables: generate.Variables{}, root: "."},
		},
		{
			name: "positional words join",
			args: []string{"Rate", "Limiting"},
			want: operationArgs{target: "Rate Limiting", variables: generate.Variables{}, root: "."},
		},
		{
			name: "key value pairs",
			args: []string{"auth", "--owner", "platform", "--tier=gold"},
			want: operationArgs{
				target:    "auth",
				variables: generate.Variables{"owner": "platform", "tier": "gold"},
				root:      ".",
			},
		},
		{
			name: "dashes become underscores",
			args: []string{"--project-name", "Acme"},
			want: operationArgs{variables: generate.Variables{"project_name": "Acme"}, root: "."},
		},
		{
			name: "flag without value",
			args: []string{"--draft", "--owner", "me"},
			want: operationArgs{variables: generate.Variables{"draft": "true", "owner": "me"}, root: "."},
		},
		{
			name: "trailing flag without value",
			args: []string{"auth", "--draft"},
			want: operationArgs{target: "auth", variables: generate.Variables{"draft": "true"}, root: "."},
		},
		{
			name: "global flags",
			args: []string{"--root", "/tmp/x", "--verbose", "auth", "--json", "--color", "never"},
			want: operationArgs{target: "auth", variables: generate.Variables{}, root: "/tmp/x", verbose: true},
		},
		{
			name: "help",
			args: []string{"-h"},
			want: operationArgs{variables: generate.Variables{}, root: ".", help: true},
		},
		{
			name: "double dash ends flags",
			args: []string{"--", "--weird", "name"},
			want: operationArgs{target: "--weird name", variables: generate.Variables{}, root: "."},
		},
		{
			name:    "empty key",
			args:    []string{"--=x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOperationArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseOperationArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.target != tt.want.target || got.root != tt.want.root ||
				got.verbose != tt.want.verbose || got.help != tt.want.help {
				t.Errorf("parseOperationArgs() = %+v, want %+v", got, tt.want)
			}
			if !maps.Equal(got.variables, tt.want.variables) {
				t.Errorf("variables = %v, want %v", got.variables, tt.want.variables)
			}
		})
	}
}

// decodeResponse parses the single JSON object an operation prints.
func decodeResponse(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output should be one JSON object: %v, got %q", err, out)
	}
	return resp
}

func TestOperation_Bootstrap(t *testing.T) {
	isolate(t)
	dir := installedWorkspace(t)

	out, _, err := execute(t, "bootstrap", "--root", dir, "--project_name", "Acme")
	if err != nil {
		t.Fatalf("bootstrap error = %v, output %s", err, out)
	}

	resp := decodeResponse(t, out)
	if resp["success"] != true || resp["command"] != "bootstrap" {
		t.Fatalf("response = %v", resp)
	}
	if resp["workingDirectory"] != dir {
		t.Errorf("workingDirectory = %v, want %s", resp["workingDirectory"], dir)
	}
	result := resp["result"].(map[string]any)
	if result["aiDocsCount"].(float64) == 0 {
		t.Errorf("no AI docs generated: %v", result)
	}
	if _, err := os.Stat(filepath.Join(dir, "docs", "ai", "MASTER-INDEX.md")); err != nil {
		t.Errorf("index not written: %v", err)
	}
}

func TestOperation_RootBeforeCommand(t *testing.T) {
	isolate(t)
	dir := installedWorkspace(t)

	out, _, err := execute(t, "--root", dir, "index")
	if err != nil {
		t.Fatalf("index error = %v, output %s", err, out)
	}
	if resp := decodeResponse(t, out); resp["success"] != true {
		t.Errorf("response = %v", resp)
	}
}

func TestOperation_ExpandWritesConceptDoc(t *testing.T) {
	isolate(t)
	dir := installedWorkspace(t)

	out, _, err := execute(t, "expand", "Rate", "Limiting", "--root", dir)
	if err != nil {
		t.Fatalf("expand error = %v, output %s", err, out)
	}
	result := decodeResponse(t, out)["result"].(map[string]any)
	if result["target"] != "Rate Limiting" {
		t.Errorf("target = %v", result["target"])
	}
	found := false
	for _, p := range result["humanDocs"].([]any) {
		if strings.HasSuffix(p.(string), "rate-limiting.md") {
			found = true
		}
	}
	if !found {
		t.Errorf("no rate-limiting doc in %v", result["humanDocs"])
	}
}

func TestOperation_MissingParameter(t *testing.T) {
	isolate(t)
	dir := installedWorkspace(t)

	out, _, err := execute(t, "expand", "--root", dir)
	if err == nil {
		t.Fatal("expected error for missing concept")
	}
	if code := output.GetExitCode(err); code != output.ExitFailure {
		t.Errorf("exit code = %d, want %d", code, output.ExitFailure)
	}
	resp := decodeResponse(t, out)
	if resp["success"] != false {
		t.Errorf("success = %v, want false", resp["success"])
	}
	if !strings.Contains(resp["error"].(string), "concept") {
		t.Errorf("error = %v, want mention of concept", resp["error"])
	}
}

func TestOperation_NotInstalled(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "bootstrap", "--root", t.TempDir())
	if err == nil {
		t.Fatal("expected error for incomplete installation")
	}
	resp := decodeResponse(t, out)
	if !strings.Contains(resp["error"].(string), "docsmith init") {
		t.Errorf("error = %v, want init hint", resp["error"])
	}
}

func TestOperation_Help(t *testing.T) {
	out, _, err := execute(t, "search", "--help")
	if err != nil {
		t.Fatalf("help error = %v", err)
	}
	if !strings.Contains(out, "search <query>") {
		t.Errorf("help should show usage: %q", out)
	}
}

func TestRun_DispatchesByName(t *testing.T) {
	isolate(t)
	dir := installedWorkspace(t)
	doc := filepath.Join(dir, "docs", "notes.md")
	if err := os.WriteFile(doc, []byte("retry policy lives here\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "run", "search", "retry", "--root", dir)
	if err != nil {
		t.Fatalf("run search error = %v, output %s", err, out)
	}
	resp := decodeResponse(t, out)
	if resp["command"] != "search" {
		t.Errorf("command = %v", resp["command"])
	}
	result := resp["result"].(map[string]any)
	if result["totalMatches"].(float64) != 1 {
		t.Errorf("totalMatches = %v, want 1", result["totalMatches"])
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	isolate(t)
	dir := installedWorkspace(t)

	out, _, err := execute(t, "run", "publish", "--root", dir)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	resp := decodeResponse(t, out)
	if resp["success"] != false || resp["command"] != "publish" {
		t.Errorf("response = %v", resp)
	}
}
