// Package output provides structured output handling for the docsmith CLI.
//
// Every command works for both humans and automation. The Printer switches
// between JSON and lipgloss-styled text:
//
//	printer := output.NewPrinter(cmd.OutOrStdout(), jsonMode, output.IsTTY(cmd.OutOrStdout()))
//	printer.Success(map[string]any{"message": "Installed 12 files"})
//	printer.Check(report.Valid, "%s", report.Path)
//	printer.Error(err)
//
// # Exit Codes
//
//	output.ExitSuccess // 0: success
//	output.ExitFailure // 1: bad arguments, incomplete installation, I/O or parse error
//	output.ExitInvalid // 2: content failed validation
//
// Errors built with NewUserError, NewSystemError or NewInvalidError carry
// their exit code; GetExitCode maps any error to a process exit code.
package output
