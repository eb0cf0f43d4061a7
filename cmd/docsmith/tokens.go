package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/output"
	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// tokensFlags holds the command-line flags for the tokens command.
type tokensFlags struct {
	format   string
	manifest string
	budget   int
}

// newTokensCmd creates the tokens command.
func newTokensCmd() *cobra.Command {
	flags := &tokensFlags{}

	cmd := &cobra.Command{
		Use:   "tokens [file|-]",
		Short: "Count tokens in a file or stdin",
		Long: `Count tokens in a file, or stdin when the file is "-" or omitted.

The count is exact when a tokenizer encoding is available for the configured
model (DOCSMITH_MODEL, default gpt-4) and a heuristic estimate otherwise.

Relative paths are resolved against --root. A budget comes from --budget, or
from the default_token_budget (or budget) field of the YAML file named by
--manifest. The command exits 1 only when a budget was requested and exceeded.

The whole file is counted. For generated AI documents that includes the YAML
frontmatter, while the frontmatter's tokens field and the bootstrap totals
count only the document body.

Examples:
  docsmith tokens docs/ai/01-core-concepts/auth.ai.md
  docsmith tokens README.md --budget 2000
  cat notes.md | docsmith tokens --format json
  docsmith tokens draft.md --manifest templates/ai-optimized/concept.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", "plain", "Output format: plain or json")
	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "YAML file whose token budget to check against")
	cmd.Flags().IntVar(&flags.budget, "budget", 0, "Token budget to check against")

	return cmd
}

// runTokens executes the tokens command.
func runTokens(cmd *cobra.Command, flags *tokensFlags, args []string) error {
	printer := newPrinter(cmd)
	jsonOut := printer.IsJSON()
	switch flags.format {
	case "json":
		jsonOut = true
	case "plain":
	default:
		err := output.NewUserError(fmt.Sprintf("invalid format %q (want plain or json)", flags.format))
		printer.Error(err)
		return err
	}
	if jsonOut && !printer.IsJSON() {
		printer = output.NewPrinter(cmd.OutOrStdout(), true, false)
	}

	e, err := loadCmdEnv(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}

	budget, err := requestedBudget(e.root, flags)
	if err != nil {
		printer.Error(err)
		return err
	}

	result, err := countInput(cmd, e.root, e.counter, int64(e.cfg.MaxFileSize), args)
	if err != nil {
		printer.Error(err)
		return err
	}
	if budget != nil {
		check := tokens.CheckBudget(result.Tokens, budget)
		result.Budget = &check
	}

	if jsonOut {
		if err := printer.WriteJSON(result); err != nil {
			return err
		}
	} else {
		printTokens(printer, result)
	}

	if result.Budget != nil && !result.Budget.WithinBudget {
		return output.NewUserError(fmt.Sprintf("over budget by %d tokens", -result.Budget.Remaining))
	}
	return nil
}

// countInput counts the named file, or stdin for "-" or no argument.
// Stdin gets the same size and content checks as a file.
func countInput(cmd *cobra.Command, root workspace.Root, counter *tokens.Counter, limit int64, args []string) (tokens.Result, error) {
	if len(args) == 1 && args[0] != "-" {
		result, err := counter.CountFile(root.Path(args[0]))
		if err != nil {
			return tokens.Result{}, output.NewSystemErrorWithCause(err.Error(), err)
		}
		result.Path = args[0]
		return result, nil
	}

	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), limit+1))
	if err != nil {
		return tokens.Result{}, output.NewSystemErrorWithCause("reading stdin: "+err.Error(), err)
	}
	if int64(len(data)) > limit {
		return tokens.Result{}, output.NewSystemError(fmt.Sprintf("%s: stdin exceeds %s",
			tokens.ErrFileTooLarge, humanize.IBytes(uint64(limit))))
	}
	if tokens.IsBinary(data) {
		return tokens.Result{}, output.NewSystemError(tokens.ErrNotText.Error() + ": stdin")
	}
	result := counter.Count(string(data))
	result.Path = "-"
	return result, nil
}

// requestedBudget returns nil when neither --budget nor --manifest is set.
func requestedBudget(root workspace.Root, flags *tokensFlags) (tokens.BudgetSource, error) {
	switch {
	case flags.budget > 0:
		return tokens.Budget(flags.budget), nil
	case flags.manifest != "":
		n, err := manifest.ReadBudget(root.Path(flags.manifest))
		if err != nil {
			return nil, output.NewSystemErrorWithCause(err.Error(), err)
		}
		return tokens.Budget(n), nil
	default:
		return nil, nil
	}
}

// printTokens prints a count for humans.
func printTokens(printer *output.Printer, result tokens.Result) {
	printer.Print("%s tokens (%s, %s)\n", humanize.Comma(int64(result.Tokens)), result.Method, result.Model)
	if result.Budget == nil {
		return
	}
	b := result.Budget
	if b.WithinBudget {
		printer.Check(true, "within budget: %s of %s (%d%%), %s remaining",
			humanize.Comma(int64(result.Tokens)), humanize.Comma(int64(b.Budget)),
			b.UsagePercentage, humanize.Comma(int64(b.Remaining)))
		return
	}
	printer.Check(false, "over budget: %s of %s (%d%%), %s over",
		humanize.Comma(int64(result.Tokens)), humanize.Comma(int64(b.Budget)),
		b.UsagePercentage, humanize.Comma(int64(-b.Remaining)))
}
