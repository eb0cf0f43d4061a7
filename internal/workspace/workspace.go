// Package workspace resolves every docsmith path from an explicit project root.
//
// Nothing in docsmith reads the process working directory except the CLI entry
// point, which converts it into a Root once and passes it down.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default directory names, relative to the root.
const (
	CoreDir      = "core"
	TemplatesDir = "templates"
	ManifestDir  = "templates/ai-optimized"
	DocsDir      = "docs"
	AIDocsDir    = "docs/ai"

	// IndexFile is the master index, relative to the AI docs directory.
	IndexFile = "MASTER-INDEX.md"

	// AIDocSuffix marks AI-optimized documents.
	AIDocSuffix = ".ai.md"

	// ConfigFile is the optional project config file.
	ConfigFile = ".docsmith.yaml"
)

// ErrInstallationIncomplete is returned when the expected layout is missing.
var ErrInstallationIncomplete = errors.New("installation incomplete")

// Root is an absolute project root. The zero value is not usable.
type Root struct {
	dir         string
	manifestDir string
	docsDir     string
}

// New returns a Root for dir. Relative dirs are made absolute.
func New(dir string) (Root, error) {
	if strings.TrimSpace(dir) == "" {
		return Root{}, errors.New("workspace root is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("resolving workspace root %s: %w", dir, err)
	}
	return Root{dir: abs, manifestDir: ManifestDir, docsDir: DocsDir}, nil
}

// WithManifestDir overrides the manifest directory (relative to the root).
func (r Root) WithManifestDir(rel string) Root {
	if rel != "" {
		r.manifestDir = rel
	}
	return r
}

// WithDocsDir overrides the docs directory (relative to the root).
func (r Root) WithDocsDir(rel string) Root {
	if rel != "" {
		r.docsDir = rel
	}
	return r
}

// Dir returns the absolute root directory.
func (r Root) Dir() string { return r.dir }

// Path joins rel onto the root. Absolute paths are returned unchanged.
func (r Root) Path(rel ...string) string {
	if len(rel) == 1 && filepath.IsAbs(rel[0]) {
		return filepath.Clean(rel[0])
	}
	return filepath.Join(append([]string{r.dir}, rel...)...)
}

// Rel returns path relative to the root using forward slashes.
// Paths outside the root are returned unchanged.
func (r Root) Rel(path string) string {
	rel, err := filepath.Rel(r.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// CorePath is the core installation directory.
func (r Root) CorePath() string { return r.Path(CoreDir) }

// TemplatesPath is the template directory.
func (r Root) TemplatesPath() string { return r.Path(TemplatesDir) }

// ManifestPath is the manifest directory.
func (r Root) ManifestPath() string { return r.Path(r.manifestDir) }

// DocsPath is the human documentation root.
func (r Root) DocsPath() string { return r.Path(r.docsDir) }

// AIDocsPath is the AI documentation root.
func (r Root) AIDocsPath() string { return filepath.Join(r.DocsPath(), "ai") }

// IndexPath is the master index file.
func (r Root) IndexPath() string { return filepath.Join(r.AIDocsPath(), IndexFile) }

// ConfigPath is the optional project config file.
func (r Root) ConfigPath() string { return r.Path(ConfigFile) }

// CheckInstallation verifies the core and templates directories exist.
func (r Root) CheckInstallation() error {
	var missing []string
	for _, dir := range []string{CoreDir, TemplatesDir} {
		info, err := os.Stat(r.Path(dir))
		if err != nil || !info.IsDir() {
			missing = append(missing, dir+"/")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s in %s (run 'docsmith init')",
			ErrInstallationIncomplete, strings.Join(missing, ", "), r.dir)
	}
	return nil
}
