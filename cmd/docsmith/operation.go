package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/docsmith/internal/generate"
	"github.com/gorewood/docsmith/internal/orchestrator"
	"github.com/gorewood/docsmith/internal/output"
)

// operationArgs is the hand-parsed command line of a generation command.
// Arbitrary --key value pairs become template variables, so cobra's flag
// parsing is disabled for these commands.
type operationArgs struct {
	target    string
	variables generate.Variables
	root      string
	verbose   bool
	help      bool
}

// valueless flags never consume the following argument.
var valueless = map[string]bool{"verbose": true, "json": true, "help": true}

// parseOperationArgs parses `[arg ...] [--key value | --key=value | --flag]`.
// Positional arguments are joined with spaces into the target. Keys use
// underscores, so --concept-name and --concept_name are the same variable.
// A lone "--" ends flag parsing.
func parseOperationArgs(args []string) (operationArgs, error) {
	parsed := operationArgs{variables: generate.Variables{}, root: "."}
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
			continue
		case arg == "-h":
			parsed.help = true
			continue
		case !strings.HasPrefix(arg, "--"):
			positional = append(positional, arg)
			continue
		}

		key, value, hasValue := strings.Cut(arg[2:], "=")
		key = strings.ReplaceAll(strings.TrimSpace(key), "-", "_")
		if key == "" {
			return parsed, fmt.Errorf("invalid flag %q", arg)
		}
		if !hasValue {
			if !valueless[key] && i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
				value = args[i+1]
				i++
			} else {
				value = "true"
			}
		}

		switch key {
		case "help":
			parsed.help = value != "false"
		case "verbose":
			parsed.verbose = value != "false"
		case "json", "color":
			// Output is always a single JSON object.
		case "root":
			parsed.root = value
		default:
			parsed.variables[key] = value
		}
	}

	parsed.target = strings.Join(positional, " ")
	return parsed, nil
}

// newOperationCmd creates the command for one orchestrator operation.
func newOperationCmd(op orchestrator.Operation) *cobra.Command {
	use := op.String()
	if param := op.Parameter(); param != "" {
		use += " <" + param + ">"
	}
	use += " [--key value ...]"

	return &cobra.Command{
		Use:   use,
		Short: op.Description(),
		Long: op.Description() + `.

Prints one JSON object:
  {success, command, options, result|error, duration, timestamp, workingDirectory}
and exits 1 when the operation fails.

Any --key value pair becomes a template variable ({KEY} or {{key}}), merged over
the variables in .docsmith.yaml. --root selects the workspace.

Examples:
` + operationExample(op),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, op.String(), args)
		},
	}
}

func operationExample(op orchestrator.Operation) string {
	switch op {
	case orchestrator.OpBootstrap:
		return "  docsmith bootstrap --project_name Acme"
	case orchestrator.OpExpand:
		return "  docsmith expand \"Rate Limiting\"\n  docsmith expand caching --owner platform"
	case orchestrator.OpAnalyze:
		return "  docsmith analyze stripe"
	case orchestrator.OpUpdate:
		return "  docsmith update deployment"
	case orchestrator.OpIndex:
		return "  docsmith index"
	case orchestrator.OpSearch:
		return "  docsmith search webhook"
	default:
		return ""
	}
}

// newRunCmd creates the run command, the single entry point over all
// operations.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command> [arg] [--key value ...]",
		Short: "Run a generation command by name",
		Long: `Run a generation command by name.

Commands: ` + strings.Join(orchestrator.Names(), ", ") + `

Behaves exactly like calling the command directly; an unknown command
yields a JSON error response.

Examples:
  docsmith run expand authentication
  docsmith run search "retry policy"`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
				name, args = args[0], args[1:]
			}
			return runOperation(cmd, name, args)
		},
	}
}

// runOperation executes a named operation and prints the response.
func runOperation(cmd *cobra.Command, name string, args []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), true, false)

	parsed, err := parseOperationArgs(args)
	if err != nil {
		exitErr := output.NewUserError(err.Error())
		printer.Error(exitErr)
		return exitErr
	}
	if parsed.help {
		return cmd.Help()
	}

	e, err := loadEnv(parsed.root, newLogger(cmd.ErrOrStderr(), parsed.verbose))
	if err != nil {
		printer.Error(err)
		return err
	}

	resp := e.newOrchestrator().ExecuteCommand(name, orchestrator.Options{
		Target:    parsed.target,
		Variables: e.variables(parsed.variables),
	})
	if err := printer.WriteJSON(resp); err != nil {
		return err
	}
	if !resp.Success {
		return output.NewUserError(resp.Error)
	}
	return nil
}
