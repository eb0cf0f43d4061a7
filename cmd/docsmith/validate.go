package main

import (
	"fmt"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/output"
)

// newValidateCmd creates the validate command.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [manifest...]",
		Short: "Validate manifests against the schema",
		Long: `Validate manifests against the schema.

With no arguments, validates every manifest in the manifest directory.
Relative paths are resolved against --root. The
schema is read from ai-manifest-schema.yaml in that directory, falling back
to the built-in schema.

Exit codes:
  0  every manifest is valid
  2  at least one manifest is invalid
  1  a manifest could not be read or parsed, or validation could not run

Examples:
  docsmith validate
  docsmith validate templates/ai-optimized/concept.yaml
  docsmith validate --json`,
		RunE: runValidate,
	}
}

// runValidate executes the validate command.
func runValidate(cmd *cobra.Command, args []string) error {
	printer := newPrinter(cmd)

	e, err := loadCmdEnv(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}

	dir := e.root.ManifestPath()
	paths := args
	if len(paths) == 0 {
		discovered, err := manifest.Discover(dir)
		if err != nil {
			exitErr := output.NewSystemErrorWithCause(err.Error(), err)
			printer.Error(exitErr)
			return exitErr
		}
		if len(discovered) == 0 {
			exitErr := output.NewUserError("no manifests found in " + e.root.Rel(dir))
			printer.Error(exitErr)
			return exitErr
		}
		for _, p := range discovered {
			paths = append(paths, e.root.Rel(p))
		}
	}

	validator, err := manifest.NewValidatorForDir(dir)
	if err != nil {
		exitErr := output.NewSystemErrorWithCause(err.Error(), err)
		printer.Error(exitErr)
		return exitErr
	}
	resolved := make([]string, len(paths))
	for i, p := range paths {
		resolved[i] = e.root.Path(p)
	}
	batch := validator.ValidateAll(resolved)
	for i, r := range batch.Results {
		r.Path = paths[i]
	}

	if printer.IsJSON() {
		if err := printer.WriteJSON(batch); err != nil {
			return err
		}
	} else {
		printValidation(printer, batch)
	}

	if batch.HasFatal() {
		return output.NewSystemError(fmt.Sprintf("%s could not be read or parsed", english.Plural(batch.Summary.Fatal, "manifest", "")))
	}
	if !batch.AllValid() {
		return output.NewInvalidError(fmt.Sprintf("%s invalid", english.Plural(batch.Summary.Invalid, "manifest", "")))
	}
	return nil
}

// printValidation prints one ✓/✗ line per manifest with its findings.
func printValidation(printer *output.Printer, batch *manifest.BatchReport) {
	for _, r := range batch.Results {
		printer.Check(r.Valid, "%s", r.Path)
		for _, msg := range r.Errors {
			printer.Detail(false, "%s", msg)
		}
		for _, msg := range r.Warnings {
			printer.Detail(true, "%s", msg)
		}
	}

	s := batch.Summary
	printer.Println()
	printer.Print("%s: %d valid, %d invalid (%s, %s)\n",
		english.Plural(s.Total, "manifest", ""), s.Valid, s.Invalid,
		english.Plural(s.Errors, "error", ""), english.Plural(s.Warnings, "warning", ""))
}
