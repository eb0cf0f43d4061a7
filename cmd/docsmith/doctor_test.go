package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func runDoctorJSON(t *testing.T, dir string) doctorResult {
	t.Helper()
	out, _, err := execute(t, "--json", "doctor", "--root", dir)
	if err != nil {
		t.Fatalf("doctor error = %v", err)
	}
	var result doctorResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output should be JSON: %v, got %q", err, out)
	}
	return result
}

func findCheck(checks []checkResult, name string) (checkResult, bool) {
	for _, c := range checks {
		if c.Name == name {
			return c, true
		}
	}
	return checkResult{}, false
}

func TestDoctor_EmptyWorkspace(t *testing.T) {
	isolate(t)
	result := runDoctorJSON(t, t.TempDir())

	layout, ok := findCheck(result.Installation, "Layout")
	if !ok || layout.Status != checkFail {
		t.Errorf("Layout = %+v, want fail", layout)
	}
	if !strings.Contains(layout.Hint, "docsmith init") {
		t.Errorf("Layout hint = %q", layout.Hint)
	}
	if result.Summary.Failed == 0 {
		t.Errorf("summary = %+v, want failures", result.Summary)
	}
}

func TestDoctor_InstalledWorkspace(t *testing.T) {
	isolate(t)
	dir := installedWorkspace(t)
	result := runDoctorJSON(t, dir)

	for _, name := range []string{"Layout", "Manifests"} {
		check, ok := findCheck(result.Installation, name)
		if !ok || check.Status != checkPass {
			t.Errorf("%s = %+v, want pass", name, check)
		}
	}
	index, _ := findCheck(result.Installation, "Master Index")
	if index.Status != checkWarn {
		t.Errorf("Master Index = %+v, want warn before bootstrap", index)
	}
	tokenizer, _ := findCheck(result.Configuration, "Tokenizer")
	if tokenizer.Status != checkPass || !strings.HasPrefix(tokenizer.Message, "heuristic") {
		t.Errorf("Tokenizer = %+v", tokenizer)
	}
}

func TestDoctor_BadConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, ".docsmith.yaml", "docs_dir: ../outside\n")

	result := runDoctorJSON(t, dir)
	cfg, ok := findCheck(result.Configuration, "Config")
	if !ok || cfg.Status != checkFail {
		t.Errorf("Config = %+v, want fail", cfg)
	}
}

func TestDoctor_DetectedAssistantWithoutSection(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeDoc(t, dir, ".cursorrules", "")

	result := runDoctorJSON(t, dir)
	if len(result.Integration) != 1 || result.Integration[0].Status != checkWarn {
		t.Fatalf("Integration = %+v", result.Integration)
	}
	if !strings.Contains(result.Integration[0].Hint, "docsmith setup cursor") {
		t.Errorf("hint = %q", result.Integration[0].Hint)
	}
}

func TestDoctor_Human(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "doctor", "--root", installedWorkspace(t))
	if err != nil {
		t.Fatalf("doctor error = %v", err)
	}
	for _, want := range []string{"INSTALLATION", "CONFIGURATION", "INTEGRATION", "passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q: %q", want, out)
		}
	}
}
