// Package main provides the entry point for the docsmith CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gorewood/docsmith/internal/orchestrator"
	"github.com/gorewood/docsmith/internal/output"
)

// Build info set via ldflags at build time by goreleaser.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2024-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// isJSONMode reads the --json persistent flag from the command hierarchy.
func isJSONMode(cmd *cobra.Command) bool {
	return boolFlag(cmd, "json")
}

// isVerbose reads the --verbose persistent flag from the command hierarchy.
func isVerbose(cmd *cobra.Command) bool {
	return boolFlag(cmd, "verbose")
}

func boolFlag(cmd *cobra.Command, name string) bool {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		// Walk up to root to find the persistent flag
		flag = cmd.Root().PersistentFlags().Lookup(name)
	}
	return flag != nil && flag.Value.String() == "true"
}

// stringFlag reads a persistent string flag, falling back to def.
func stringFlag(cmd *cobra.Command, name, def string) string {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup(name)
	}
	if flag == nil || flag.Value.String() == "" {
		return def
	}
	return flag.Value.String()
}

// buildVersion returns the full version string including commit and date.
func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	shortCommit := commit
	if len(commit) > 7 {
		shortCommit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, shortCommit, date)
}

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	cmd := newRootCmd()
	err := fang.Execute(context.Background(), cmd, fang.WithVersion(buildVersion()))
	return output.GetExitCode(err)
}

// newRootCmd creates the root command for the docsmith CLI.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsmith",
		Short: "Scaffold token-budgeted documentation for humans and AI assistants",
		Long: `Docsmith - Documentation scaffolding for humans and AI assistants.

Docsmith installs a template layout into a project and generates documentation from it:
  - Templates with {VARIABLE} placeholders become human documents under docs/
  - YAML manifests describe a token-budgeted AI rendering under docs/ai/
  - A master index lists every AI document with its token count
  - Agent instruction files (CLAUDE.md, AGENTS.md, ...) learn the command vocabulary

Generation commands print one JSON object; the rest support --json.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := output.ParseColorMode(stringFlag(cmd, "color", "")); err != nil {
				return output.NewUserError(err.Error())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// If --json flag is set but no subcommand, output JSON error
			if isJSONMode(cmd) {
				printer := output.NewPrinter(cmd.OutOrStdout(), true, false)
				err := output.NewUserError("no command specified. Run 'docsmith --help' for usage")
				printer.Error(err)
				return err
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("root", ".", "Workspace root directory")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("color", string(output.ColorAuto), "Color output: auto, always or never")
	cmd.PersistentFlags().Bool("verbose", false, "Log debug output to stderr")

	// Configure lipgloss for TTY detection
	lipgloss.SetHasDarkBackground(true)

	addCommandGroups(cmd)
	addCommands(cmd)

	return cmd
}

// addCommandGroups defines the command groups for help output.
func addCommandGroups(cmd *cobra.Command) {
	cmd.AddGroup(&cobra.Group{ID: "generate", Title: "Generation Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "tools", Title: "Tool Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "admin", Title: "Admin Commands:"})
}

// addCommands adds all subcommands with their group assignments.
func addCommands(cmd *cobra.Command) {
	for _, op := range orchestrator.Operations() {
		addGroupedCommand(cmd, newOperationCmd(op), "generate")
	}
	addGroupedCommand(cmd, newRunCmd(), "generate")

	addGroupedCommand(cmd, newTokensCmd(), "tools")
	addGroupedCommand(cmd, newValidateCmd(), "tools")

	addGroupedCommand(cmd, newInitCmd(), "admin")
	addGroupedCommand(cmd, newSetupCmd(), "admin")
	addGroupedCommand(cmd, newDoctorCmd(), "admin")
	addGroupedCommand(cmd, newServeCmd(), "admin")
}

// addGroupedCommand adds a subcommand with a group assignment.
func addGroupedCommand(parent *cobra.Command, child *cobra.Command, groupID string) {
	child.GroupID = groupID
	parent.AddCommand(child)
}
