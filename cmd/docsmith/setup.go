package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/docsmith/internal/output"
	"github.com/gorewood/docsmith/internal/setup"
	"github.com/gorewood/docsmith/internal/workspace"
)

// setupFlags holds the command-line flags for the setup command.
type setupFlags struct {
	list   bool
	remove bool
}

// newSetupCmd creates the setup command.
func newSetupCmd() *cobra.Command {
	flags := &setupFlags{}

	cmd := &cobra.Command{
		Use:   "setup [agent...]",
		Short: "Teach coding assistants the docsmith commands",
		Long: `Write a docsmith section into coding assistants' instruction files.

The section is delimited by markers, so running setup again leaves the file
unchanged and --remove deletes exactly what setup added.

Agents: ` + strings.Join(setup.Names(), ", ") + `

With no agent named, setup targets every assistant detected in the workspace.

Examples:
  docsmith setup --list          # Show assistants and their status
  docsmith setup                 # Install for detected assistants
  docsmith setup claude codex    # Install for specific assistants
  docsmith setup cursor --remove # Remove the section`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.list, "list", false, "List assistants and their status")
	cmd.Flags().BoolVar(&flags.remove, "remove", false, "Remove the docsmith section")

	return cmd
}

// runSetup executes the setup command.
func runSetup(cmd *cobra.Command, flags *setupFlags, args []string) error {
	printer := newPrinter(cmd)

	e, err := loadCmdEnv(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}

	if flags.list {
		return runSetupList(printer, e.root)
	}

	envs, err := resolveAgentEnvs(e.root, args)
	if err != nil {
		printer.Error(err)
		return err
	}

	statuses := make([]setup.Status, 0, len(envs))
	for _, agent := range envs {
		if flags.remove {
			if !setup.Check(e.root, agent).Installed {
				printer.Warn("%s: no docsmith section to remove", agent.Name())
				continue
			}
			err = setup.Remove(e.root, agent)
		} else {
			_, err = setup.Install(e.root, agent)
		}
		if err != nil {
			exitErr := output.NewSystemErrorWithCause(fmt.Sprintf("%s: %v", agent.Name(), err), err)
			printer.Error(exitErr)
			return exitErr
		}
		e.logger.Debug("updated instruction file", "agent", agent.Name(), "remove", flags.remove)
		statuses = append(statuses, setup.Check(e.root, agent))
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"removed": flags.remove,
			"agents":  statuses,
		})
	}

	verb := "installed in"
	if flags.remove {
		verb = "removed from"
	}
	for _, s := range statuses {
		printer.Check(true, "%s: docsmith section %s %s", s.DisplayName, verb, s.Path)
	}
	return nil
}

// resolveAgentEnvs returns the named environments, or the detected ones when
// none are named.
func resolveAgentEnvs(root workspace.Root, names []string) ([]setup.AgentEnv, error) {
	if len(names) == 0 {
		detected := setup.DetectedAgentEnvs(root)
		if len(detected) == 0 {
			return nil, output.NewUserError(fmt.Sprintf(
				"no assistants detected; name one of: %s", strings.Join(setup.Names(), ", ")))
		}
		return detected, nil
	}

	envs := make([]setup.AgentEnv, 0, len(names))
	for _, name := range names {
		agent := setup.GetAgentEnv(strings.ToLower(name))
		if agent == nil {
			return nil, output.NewUserError(fmt.Sprintf(
				"unknown agent %q (want one of: %s)", name, strings.Join(setup.Names(), ", ")))
		}
		envs = append(envs, agent)
	}
	return envs, nil
}

// runSetupList lists assistants and their status.
func runSetupList(printer *output.Printer, root workspace.Root) error {
	statuses := make([]setup.Status, 0)
	for _, agent := range setup.AllAgentEnvs() {
		statuses = append(statuses, setup.Check(root, agent))
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{"agents": statuses})
	}

	printer.Section("Coding Assistants")
	headers := []string{"Name", "Instruction File", "Detected", "Status"}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		detected := "no"
		if s.Detected {
			detected = "yes"
		}
		status := "not installed"
		if s.Installed {
			status = "installed"
		}
		rows = append(rows, []string{s.Name, s.Path, detected, status})
	}
	printer.Table(headers, rows)
	return nil
}
