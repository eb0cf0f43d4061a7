// Package scaffold installs the docsmith layout into a project: the core
// marker directory, starter templates, manifests and the manifest schema.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/workspace"
)

//go:embed assets
var assets embed.FS

// Step statuses.
const (
	StatusCreated     = "created"
	StatusOverwritten = "overwritten"
	StatusSkipped     = "skipped"
	StatusDryRun      = "dry_run"
)

// Step is the outcome for one installed file or directory.
type Step struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Options control Install.
type Options struct {
	// Force overwrites files that already exist.
	Force bool
	// DryRun reports what would change without writing.
	DryRun bool
}

// Report summarises an installation.
type Report struct {
	Steps       []Step `json:"steps"`
	Created     int    `json:"created"`
	Overwritten int    `json:"overwritten"`
	Skipped     int    `json:"skipped"`
}

func (r *Report) add(step Step) {
	r.Steps = append(r.Steps, step)
	switch step.Status {
	case StatusCreated:
		r.Created++
	case StatusOverwritten:
		r.Overwritten++
	case StatusSkipped:
		r.Skipped++
	}
}

// Files lists the installed files relative to the root, in install order.
func Files() ([]string, error) {
	var files []string
	err := fs.WalkDir(assets, "assets", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		files = append(files, strings.TrimPrefix(p, "assets/"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	files = append(files, path.Join(workspace.ManifestDir, manifest.SchemaFileName))
	return files, nil
}

// Install writes the embedded layout under root. Existing files are kept
// unless opts.Force is set. Manifests go to the root's manifest directory.
func Install(root workspace.Root, opts Options) (*Report, error) {
	files, err := Files()
	if err != nil {
		return nil, err
	}

	report := &Report{Steps: []Step{}}
	for _, rel := range files {
		data, err := content(rel)
		if err != nil {
			return report, err
		}
		step, err := install(destination(root, rel), data, opts)
		step.Path = rel
		if err != nil {
			return report, err
		}
		report.add(step)
	}

	for _, dir := range []string{root.DocsPath(), root.AIDocsPath()} {
		if opts.DryRun {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return report, nil
}

func content(rel string) ([]byte, error) {
	if path.Base(rel) == manifest.SchemaFileName {
		return manifest.DefaultSchema(), nil
	}
	data, err := assets.ReadFile("assets/" + rel)
	if err != nil {
		return nil, fmt.Errorf("reading asset %s: %w", rel, err)
	}
	return data, nil
}

// destination maps an asset path onto the workspace, honouring a custom
// manifest directory.
func destination(root workspace.Root, rel string) string {
	if name, ok := strings.CutPrefix(rel, workspace.ManifestDir+"/"); ok {
		return filepath.Join(root.ManifestPath(), filepath.FromSlash(name))
	}
	return root.Path(filepath.FromSlash(rel))
}

func install(dest string, data []byte, opts Options) (Step, error) {
	_, err := os.Stat(dest)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Step{}, fmt.Errorf("checking %s: %w", dest, err)
	}

	switch {
	case exists && !opts.Force:
		return Step{Status: StatusSkipped, Message: "already exists (use --force to overwrite)"}, nil
	case opts.DryRun && exists:
		return Step{Status: StatusDryRun, Message: "would overwrite"}, nil
	case opts.DryRun:
		return Step{Status: StatusDryRun, Message: "would create"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Step{}, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return Step{}, fmt.Errorf("writing %s: %w", dest, err)
	}
	if exists {
		return Step{Status: StatusOverwritten}, nil
	}
	return Step{Status: StatusCreated}, nil
}
