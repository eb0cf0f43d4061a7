// Package output provides structured output and error handling for the docsmith CLI.
package output

import "errors"

// Exit codes. Scripts rely on these to tell environment or parse failures
// apart from content that failed validation.
//
//	0 = Success
//	1 = Failure (bad arguments, incomplete installation, I/O or parse error)
//	2 = Invalid content (a manifest failed schema validation)
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitInvalid = 2
)

// ExitError is an error that carries an exit code for the CLI.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/errors.As support.
func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUserError creates an error for user-caused issues (exit code 1).
// Use for: bad arguments, missing parameters, unknown commands.
func NewUserError(message string) *ExitError {
	return &ExitError{
		Code:    ExitFailure,
		Message: message,
	}
}

// NewSystemError creates an error for environment failures (exit code 1).
func NewSystemError(message string) *ExitError {
	return &ExitError{
		Code:    ExitFailure,
		Message: message,
	}
}

// NewSystemErrorWithCause creates a system error wrapping an underlying cause.
func NewSystemErrorWithCause(message string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitFailure,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidError creates an error for content that failed validation (exit code 2).
func NewInvalidError(message string) *ExitError {
	return &ExitError{
		Code:    ExitInvalid,
		Message: message,
	}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil, ExitFailure for non-ExitError errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitFailure
}
