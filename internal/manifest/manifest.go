// Package manifest loads and validates documentation manifests.
//
// A manifest is a YAML declaration of one documentation artifact: its
// template, specialist audiences, token budget, AI output sections and lazy
// activation rules. Validation is the only way to obtain a typed Manifest;
// nothing downstream reads raw YAML.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gorewood/docsmith/internal/workspace"
)

// Role is a specialist audience.
type Role string

// Specialist roles.
const (
	RoleDeveloper Role = "developer"
	RoleArchitect Role = "architect"
	RoleSecurity  Role = "security"
	RoleDevOps    Role = "devops"
	RoleUser      Role = "user"
)

// Roles is the fixed role enumeration, in display order.
var Roles = []Role{RoleDeveloper, RoleArchitect, RoleSecurity, RoleDevOps, RoleUser}

// ValidRole reports whether r is in Roles.
func ValidRole(r string) bool {
	return slices.Contains(Roles, Role(r))
}

// Section is one named part of the AI document.
type Section struct {
	Name      string `yaml:"name"                 json:"name"`
	MaxTokens int    `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Priority  int    `yaml:"priority,omitempty"   json:"priority,omitempty"`
}

// OutputFormat describes the AI document layout.
type OutputFormat struct {
	Sections []Section `yaml:"sections,omitempty" json:"sections,omitempty"`
}

// ActivationRule loads a specialist's content only when its condition holds.
type ActivationRule struct {
	Trigger    string `yaml:"trigger"    json:"trigger"`
	Condition  string `yaml:"condition"  json:"condition"`
	Specialist Role   `yaml:"specialist" json:"specialist"`
}

// Manifest is a validated documentation manifest.
type Manifest struct {
	Name                string             `yaml:"name"                            json:"name"`
	Description         string             `yaml:"description,omitempty"           json:"description,omitempty"`
	Category            workspace.Category `yaml:"category,omitempty"              json:"category"`
	TemplatePath        string             `yaml:"template_path"                   json:"template_path"`
	SpecialistRoles     []Role             `yaml:"specialist_roles,omitempty"      json:"specialist_roles,omitempty"`
	DefaultTokenBudget  int                `yaml:"default_token_budget"            json:"default_token_budget"`
	AIOutputFormat      OutputFormat       `yaml:"ai_output_format,omitempty"      json:"ai_output_format"`
	LazyActivationRules []ActivationRule   `yaml:"lazy_activation_rules,omitempty" json:"lazy_activation_rules,omitempty"`

	// Path is the manifest file the struct was loaded from.
	Path string `yaml:"-" json:"path"`
}

// TokenBudget implements tokens.BudgetSource.
func (m *Manifest) TokenBudget() int {
	if m == nil {
		return 0
	}
	return m.DefaultTokenBudget
}

// TemplateFile resolves TemplatePath against the manifest's directory.
func (m *Manifest) TemplateFile() string {
	return resolveTemplate(m.Path, m.TemplatePath)
}

// Section returns the declared section matching name, ignoring case and
// punctuation, and its declaration index.
func (m *Manifest) Section(name string) (Section, int, bool) {
	key := NormalizeName(name)
	for i, s := range m.AIOutputFormat.Sections {
		if NormalizeName(s.Name) == key {
			return s, i, true
		}
	}
	return Section{}, -1, false
}

// HasCategory reports whether the manifest belongs to any of cats.
func (m *Manifest) HasCategory(cats ...workspace.Category) bool {
	return slices.Contains(cats, m.Category)
}

// NormalizeName lowercases name and keeps only letters and digits.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func resolveTemplate(manifestPath, templatePath string) string {
	if filepath.IsAbs(templatePath) {
		return filepath.Clean(templatePath)
	}
	return filepath.Join(filepath.Dir(manifestPath), filepath.FromSlash(templatePath))
}

// Discover lists manifest files in dir, sorted, excluding the schema file.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == SchemaFileName {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// ReadBudget reads default_token_budget, or a generic budget field, from any
// YAML file without validating it. Zero means the file declares neither.
func ReadBudget(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	var raw struct {
		DefaultTokenBudget int `yaml:"default_token_budget"`
		Budget             int `yaml:"budget"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	if raw.DefaultTokenBudget > 0 {
		return raw.DefaultTokenBudget, nil
	}
	return raw.Budget, nil
}
