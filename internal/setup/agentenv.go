package setup

import (
	"os"
	"slices"

	"github.com/gorewood/docsmith/internal/workspace"
)

// AgentEnv describes an AI coding assistant docsmith can brief.
type AgentEnv interface {
	// Name returns the short identifier used in CLI commands (e.g., "claude").
	Name() string

	// DisplayName returns the human-readable name (e.g., "Claude Code").
	DisplayName() string

	// InstructionFile is the instruction file, relative to the workspace root.
	InstructionFile() string

	// Detect reports whether the assistant appears to be used in root.
	Detect(root workspace.Root) bool
}

// registry holds all known agent environments, keyed by name.
var registry = map[string]AgentEnv{}

// order fixes the listing order of the built-in environments.
var order = []string{"claude", "copilot", "cursor", "gemini", "codex"}

// RegisterAgentEnv registers an agent environment implementation.
func RegisterAgentEnv(env AgentEnv) {
	registry[env.Name()] = env
}

// GetAgentEnv returns a registered agent environment by name, or nil if not found.
func GetAgentEnv(name string) AgentEnv {
	return registry[name]
}

// AllAgentEnvs returns all registered agent environments in a stable order.
func AllAgentEnvs() []AgentEnv {
	var result []AgentEnv
	for _, name := range order {
		if env, ok := registry[name]; ok {
			result = append(result, env)
		}
	}
	var extra []string
	for name := range registry {
		if !slices.Contains(order, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		result = append(result, registry[name])
	}
	return result
}

// Names lists the registered environment names in listing order.
func Names() []string {
	envs := AllAgentEnvs()
	names := make([]string, len(envs))
	for i, env := range envs {
		names[i] = env.Name()
	}
	return names
}

// DetectedAgentEnvs returns the environments that appear to be used in root.
func DetectedAgentEnvs(root workspace.Root) []AgentEnv {
	var detected []AgentEnv
	for _, env := range AllAgentEnvs() {
		if env.Detect(root) {
			detected = append(detected, env)
		}
	}
	return detected
}

// fileAgent is an assistant recognised by marker paths in the workspace.
type fileAgent struct {
	name        string
	displayName string
	instruction string
	markers     []string
}

func (a *fileAgent) Name() string            { return a.name }
func (a *fileAgent) DisplayName() string     { return a.displayName }
func (a *fileAgent) InstructionFile() string { return a.instruction }

// Detect checks the marker paths and the instruction file itself.
func (a *fileAgent) Detect(root workspace.Root) bool {
	for _, rel := range append([]string{a.instruction}, a.markers...) {
		if _, err := os.Stat(root.Path(rel)); err == nil {
			return true
		}
	}
	return false
}

func init() {
	RegisterAgentEnv(&fileAgent{
		name: "claude", displayName: "Claude Code",
		instruction: "CLAUDE.md",
		markers:     []string{".claude"},
	})
	RegisterAgentEnv(&fileAgent{
		name: "copilot", displayName: "GitHub Copilot",
		instruction: ".github/copilot-instructions.md",
		markers:     []string{".github/instructions"},
	})
	RegisterAgentEnv(&fileAgent{
		name: "cursor", displayName: "Cursor",
		instruction: ".cursor/rules/docsmith.mdc",
		markers:     []string{".cursor", ".cursorrules"},
	})
	RegisterAgentEnv(&fileAgent{
		name: "gemini", displayName: "Gemini CLI",
		instruction: "GEMINI.md",
		markers:     []string{".gemini"},
	})
	RegisterAgentEnv(&fileAgent{
		name: "codex", displayName: "Codex",
		instruction: "AGENTS.md",
		markers:     []string{".codex"},
	})
}
