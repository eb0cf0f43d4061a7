package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gorewood/docsmith/internal/output"
	"github.com/gorewood/docsmith/internal/scaffold"
)

// initFlags holds the command-line flags for the init command.
type initFlags struct {
	force  bool
	dryRun bool
}

// initStyleSet holds lipgloss styles for init output.
type initStyleSet struct {
	heading lipgloss.Style
	pass    lipgloss.Style
	skip    lipgloss.Style
	dim     lipgloss.Style
	accent  lipgloss.Style
}

// initStyles returns a TTY-aware style set.
func initStyles(isTTY bool) initStyleSet {
	if !isTTY {
		return initStyleSet{}
	}
	return initStyleSet{
		heading: lipgloss.NewStyle().Bold(true),
		pass:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "10", Dark: "10"}),
		skip:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "11", Dark: "11"}),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "8", Dark: "7"}),
		accent:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "12", Dark: "12"}),
	}
}

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Install the docsmith layout into the workspace",
		Long: `Install the docsmith layout into the workspace.

Creates, from the templates built into this binary:
  - core/                         instructions and the command vocabulary
  - templates/                    human document templates
  - templates/ai-optimized/       manifests and ai-manifest-schema.yaml
  - docs/ and docs/ai/            output directories

Existing files are kept unless --force is given, so the command is safe to
run again after editing templates.

Examples:
  docsmith init              # Install missing files
  docsmith init --force      # Restore every file to the built-in version
  docsmith init --dry-run    # Show what would be done`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite files that already exist")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Show what would be done without doing it")

	return cmd
}

// runInit executes the init command.
func runInit(cmd *cobra.Command, flags *initFlags) error {
	printer := newPrinter(cmd)
	styles := initStyles(printer.IsTTY())

	e, err := loadCmdEnv(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}

	report, err := scaffold.Install(e.root, scaffold.Options{Force: flags.force, DryRun: flags.dryRun})
	if err != nil {
		exitErr := output.NewSystemErrorWithCause(err.Error(), err)
		printer.Error(exitErr)
		return exitErr
	}
	e.logger.Debug("installed layout", "root", e.root.Dir(),
		"created", report.Created, "overwritten", report.Overwritten, "skipped", report.Skipped)

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"root":        e.root.Dir(),
			"dry_run":     flags.dryRun,
			"steps":       report.Steps,
			"created":     report.Created,
			"overwritten": report.Overwritten,
			"skipped":     report.Skipped,
		})
	}

	heading := "Installing docsmith in"
	if flags.dryRun {
		heading = "Dry run: docsmith init in"
	}
	printer.Println()
	printer.Print("%s %s\n", styles.heading.Render(heading), styles.dim.Render(e.root.Dir()))
	printer.Println()
	for _, step := range report.Steps {
		printInitStep(printer, styles, step)
	}
	if !flags.dryRun {
		printNextSteps(printer, styles)
	}
	return nil
}

// printInitStep prints a single step result in human format.
func printInitStep(printer *output.Printer, styles initStyleSet, step scaffold.Step) {
	printer.Print("  %s %s", styledStepIcon(styles, step.Status), step.Path)
	if step.Message != "" {
		printer.Print(" %s", styles.dim.Render("("+step.Message+")"))
	}
	printer.Println()
}

// styledStepIcon returns a styled icon for a step status.
func styledStepIcon(styles initStyleSet, status string) string {
	switch status {
	case scaffold.StatusCreated:
		return styles.pass.Render("ok")
	case scaffold.StatusOverwritten:
		return styles.pass.Render("~~")
	case scaffold.StatusSkipped:
		return styles.skip.Render("--")
	case scaffold.StatusDryRun:
		return styles.accent.Render(">")
	default:
		return "??"
	}
}

// printNextSteps outputs the next steps message.
func printNextSteps(printer *output.Printer, styles initStyleSet) {
	printer.Println()
	printer.Print("%s\n", styles.heading.Render(styles.pass.Render("Docsmith installed!")))
	printer.Println()
	printer.Print("Next steps:\n")
	printer.Print("  1. %s\n", styles.dim.Render("Generate the starter documents:"))
	printer.Print("     %s\n", styles.accent.Render("docsmith bootstrap"))
	printer.Println()
	printer.Print("  2. %s\n", styles.dim.Render("Teach your assistant the commands:"))
	printer.Print("     %s\n", styles.accent.Render("docsmith setup"))
	printer.Println()
	printer.Print("  3. %s\n", styles.dim.Render("Verify setup:"))
	printer.Print("     %s\n", styles.accent.Render("docsmith doctor"))
}
