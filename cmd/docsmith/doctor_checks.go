package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/gorewood/docsmith/internal/config"
	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/setup"
	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// runConfigurationChecks checks env files, the config file and the
// tokenizer. It returns root with any configured directory overrides.
func runConfigurationChecks(root workspace.Root) ([]checkResult, workspace.Root) {
	checks := make([]checkResult, 0, 3)
	checks = append(checks, checkEnvFiles(root))

	cfg, err := config.Load(root)
	if err != nil {
		checks = append(checks, checkResult{
			Name:    "Config",
			Status:  checkFail,
			Message: err.Error(),
			Hint:    "Fix " + workspace.ConfigFile + " or the DOCSMITH_* environment variables",
		})
		return checks, root
	}
	checks = append(checks, checkConfig(root, cfg))
	checks = append(checks, checkTokenizer(cfg))
	return checks, cfg.Apply(root)
}

// checkEnvFiles loads the dotenv files and reports which were found.
func checkEnvFiles(root workspace.Root) checkResult {
	loaded, err := config.LoadEnv(root)
	if err != nil {
		return checkResult{
			Name:    "Env Files",
			Status:  checkFail,
			Message: err.Error(),
		}
	}
	if len(loaded) == 0 {
		return checkResult{
			Name:    "Env Files",
			Status:  checkPass,
			Message: "none found (optional)",
		}
	}
	return checkResult{
		Name:    "Env Files",
		Status:  checkPass,
		Message: english.Plural(len(loaded), "file", "") + " loaded",
	}
}

// checkConfig reports where settings come from.
func checkConfig(root workspace.Root, cfg *config.Config) checkResult {
	source := "built-in defaults"
	if cfg.Path != "" {
		source = root.Rel(cfg.Path)
	}
	return checkResult{
		Name:    "Config",
		Status:  checkPass,
		Message: fmt.Sprintf("%s (max file size %s)", source, cfg.MaxFileSize),
	}
}

// checkTokenizer reports which counting strategy is in effect.
func checkTokenizer(cfg *config.Config) checkResult {
	strategy, err := tokens.SelectStrategy(cfg.Mode(), cfg.Model)
	switch {
	case strategy == nil:
		return checkResult{
			Name:    "Tokenizer",
			Status:  checkFail,
			Message: err.Error(),
			Hint:    "Set DOCSMITH_TOKENIZER=auto to fall back to the heuristic",
		}
	case err != nil:
		return checkResult{
			Name:    "Tokenizer",
			Status:  checkWarn,
			Message: "heuristic estimate: " + err.Error(),
			Hint:    "Set DOCSMITH_MODEL to a model with a known encoding for exact counts",
		}
	default:
		return checkResult{
			Name:    "Tokenizer",
			Status:  checkPass,
			Message: fmt.Sprintf("%s (%s)", strategy.Method(), strategy.Model()),
		}
	}
}

// runInstallationChecks checks the layout, manifests and the index.
func runInstallationChecks(root workspace.Root) []checkResult {
	checks := make([]checkResult, 0, 3)
	checks = append(checks, checkLayout(root))
	checks = append(checks, checkManifests(root))
	checks = append(checks, checkIndex(root))
	return checks
}

// checkLayout checks for the core and templates directories.
func checkLayout(root workspace.Root) checkResult {
	if err := root.CheckInstallation(); err != nil {
		return checkResult{
			Name:    "Layout",
			Status:  checkFail,
			Message: "core/ or templates/ missing",
			Hint:    "Run 'docsmith init' to install",
		}
	}
	return checkResult{
		Name:    "Layout",
		Status:  checkPass,
		Message: "core/ and templates/ present",
	}
}

// checkManifests validates every manifest in the manifest directory.
func checkManifests(root workspace.Root) checkResult {
	dir := root.ManifestPath()
	paths, err := manifest.Discover(dir)
	if err != nil {
		return checkResult{
			Name:    "Manifests",
			Status:  checkFail,
			Message: root.Rel(dir) + " not readable",
			Hint:    "Run 'docsmith init' to install the starter manifests",
		}
	}
	if len(paths) == 0 {
		return checkResult{
			Name:    "Manifests",
			Status:  checkWarn,
			Message: "no manifests in " + root.Rel(dir),
			Hint:    "Run 'docsmith init' to install the starter manifests",
		}
	}

	validator, err := manifest.NewValidatorForDir(dir)
	if err != nil {
		return checkResult{
			Name:    "Manifests",
			Status:  checkFail,
			Message: err.Error(),
		}
	}
	batch := validator.ValidateAll(paths)
	s := batch.Summary
	switch {
	case s.Invalid > 0:
		return checkResult{
			Name:    "Manifests",
			Status:  checkFail,
			Message: fmt.Sprintf("%d of %d invalid", s.Invalid, s.Total),
			Hint:    "Run 'docsmith validate' for details",
		}
	case s.Warnings > 0:
		return checkResult{
			Name:    "Manifests",
			Status:  checkWarn,
			Message: fmt.Sprintf("%s valid, %s", english.Plural(s.Total, "manifest", ""), english.Plural(s.Warnings, "warning", "")),
			Hint:    "Run 'docsmith validate' for details",
		}
	default:
		return checkResult{
			Name:    "Manifests",
			Status:  checkPass,
			Message: english.Plural(s.Total, "manifest", "") + " valid",
		}
	}
}

// checkIndex checks that the master index exists and reports its age.
func checkIndex(root workspace.Root) checkResult {
	info, err := os.Stat(root.IndexPath())
	if err != nil {
		return checkResult{
			Name:    "Master Index",
			Status:  checkWarn,
			Message: root.Rel(root.IndexPath()) + " not found",
			Hint:    "Run 'docsmith bootstrap' to generate documents and the index",
		}
	}
	return checkResult{
		Name:    "Master Index",
		Status:  checkPass,
		Message: "updated " + humanize.Time(info.ModTime()),
	}
}

// runIntegrationChecks reports the docsmith section in each assistant's
// instruction file.
func runIntegrationChecks(root workspace.Root) []checkResult {
	var checks []checkResult
	for _, agent := range setup.AllAgentEnvs() {
		s := setup.Check(root, agent)
		switch {
		case s.Installed:
			checks = append(checks, checkResult{
				Name:    s.DisplayName,
				Status:  checkPass,
				Message: "section installed in " + s.Path,
			})
		case s.Detected:
			checks = append(checks, checkResult{
				Name:    s.DisplayName,
				Status:  checkWarn,
				Message: "detected but " + s.Path + " has no docsmith section",
				Hint:    "Run 'docsmith setup " + s.Name + "'",
			})
		}
	}
	if len(checks) == 0 {
		checks = append(checks, checkResult{
			Name:    "Assistants",
			Status:  checkPass,
			Message: "none detected",
		})
	}
	return checks
}
