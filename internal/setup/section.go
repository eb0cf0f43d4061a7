package setup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gorewood/docsmith/internal/output"
	"github.com/gorewood/docsmith/internal/workspace"
)

const (
	// SectionMarkerBegin marks the start of docsmith-managed content.
	SectionMarkerBegin = "<!-- BEGIN docsmith -->"
	// SectionMarkerEnd marks the end of docsmith-managed content.
	SectionMarkerEnd = "<!-- END docsmith -->"
)

// SectionContent is the managed block written into instruction files.
var SectionContent = SectionMarkerBegin + `
## Project documentation

This project's documentation is generated with docsmith.

- Read ` + "`docs/ai/MASTER-INDEX.md`" + ` first, then only the AI documents you need.
- Regenerate documents with ` + "`docsmith expand <concept>`" + `, ` + "`docsmith analyze <service>`" + ` or
  ` + "`docsmith update <section>`" + `; rebuild everything with ` + "`docsmith bootstrap`" + `.
- Find existing coverage with ` + "`docsmith search <term>`" + `.
- See ` + "`core/commands.md`" + ` for how to map requests to commands.
` + SectionMarkerEnd

// Status is the integration state of one environment.
type Status struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	Detected    bool   `json:"detected"`
	Installed   bool   `json:"installed"`
}

// Check reports whether env is detected in root and has the section installed.
func Check(root workspace.Root, env AgentEnv) Status {
	path := root.Path(filepath.FromSlash(env.InstructionFile()))
	return Status{
		Name:        env.Name(),
		DisplayName: env.DisplayName(),
		Path:        env.InstructionFile(),
		Detected:    env.Detect(root),
		Installed:   IsSectionInstalled(path),
	}
}

// IsSectionInstalled checks if the docsmith section exists in a file.
func IsSectionInstalled(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(content), SectionMarkerBegin)
}

// Install adds or replaces the docsmith section in env's instruction file and
// returns the file path relative to root.
func Install(root workspace.Root, env AgentEnv) (string, error) {
	path := root.Path(filepath.FromSlash(env.InstructionFile()))
	if err := InstallSection(path); err != nil {
		return "", err
	}
	return env.InstructionFile(), nil
}

// Remove deletes the docsmith section from env's instruction file.
func Remove(root workspace.Root, env AgentEnv) error {
	return RemoveSectionFromFile(root.Path(filepath.FromSlash(env.InstructionFile())))
}

// InstallSection adds or updates the docsmith section in a file.
func InstallSection(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return output.NewSystemErrorWithCause("failed to create instruction directory", err)
	}

	var content string
	existing, err := os.ReadFile(path)
	if err == nil {
		content = RemoveSectionFromContent(string(existing))
	} else if !os.IsNotExist(err) {
		return output.NewSystemErrorWithCause("failed to read instruction file", err)
	}

	content = strings.TrimRight(content, "\n")
	if content != "" {
		content += "\n\n"
	}
	content += SectionContent + "\n"

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return output.NewSystemErrorWithCause("failed to write instruction file", err)
	}
	return nil
}

// RemoveSectionFromFile removes the docsmith section from a file. A file left
// empty is deleted.
func RemoveSectionFromFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return output.NewSystemErrorWithCause("failed to read instruction file", err)
	}

	remaining := RemoveSectionFromContent(string(content))
	if strings.TrimSpace(remaining) == "" {
		if err := os.Remove(path); err != nil {
			return output.NewSystemErrorWithCause("failed to remove instruction file", err)
		}
		return nil
	}

	if err := os.WriteFile(path, []byte(remaining), 0o644); err != nil {
		return output.NewSystemErrorWithCause("failed to write instruction file", err)
	}
	return nil
}

// RemoveSectionFromContent removes the docsmith section from a content string.
func RemoveSectionFromContent(content string) string {
	lines := strings.Split(content, "\n")
	var result []string
	inSection := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), SectionMarkerBegin) {
			inSection = true
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), SectionMarkerEnd) {
			inSection = false
			continue
		}
		if !inSection {
			result = append(result, line)
		}
	}

	finalContent := strings.Join(result, "\n")
	for strings.Contains(finalContent, "\n\n\n") {
		finalContent = strings.ReplaceAll(finalContent, "\n\n\n", "\n\n")
	}

	return strings.TrimRight(finalContent, "\n") + "\n"
}
