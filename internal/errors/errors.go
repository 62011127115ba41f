// Package errors provides structured CLI error types for the ordeal
// runner.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// so the command layer maps every failure onto a stable process exit
// code.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Exit codes for the runner process.
const (
	ExitSuccess   = 0  // Every test passed or was skipped
	ExitFailure   = 1  // At least one failure or cleanup error
	ExitInterrupt = 2  // The run was interrupted
	ExitConfig    = 4  // Configuration error
	ExitUsage     = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// UnknownTests returns an error for test names that do not resolve.
// Selection errors surface before any test runs.
func UnknownTests(names, available []string) *CLIError {
	sorted := append([]string(nil), available...)
	sort.Strings(sorted)

	return &CLIError{
		Message: fmt.Sprintf("Unknown test: %s", strings.Join(names, ", ")),
		Hint:    fmt.Sprintf("Run 'ordeal --list' to see available tests (%s)", strings.Join(sorted, ", ")),
		Code:    ExitUsage,
	}
}

// BadFlag wraps a flag parse error with a usage exit code.
func BadFlag(cause error) *CLIError {
	return &CLIError{
		Message: "Invalid command line",
		Cause:   cause,
		Hint:    "Run 'ordeal --help' for usage",
		Code:    ExitUsage,
	}
}

// LoggingSetup returns an error for an unusable logging configuration.
func LoggingSetup(cause error) *CLIError {
	return &CLIError{
		Message: "Logging setup failed",
		Cause:   cause,
		Hint:    "Check --log-level and --log-file",
		Code:    ExitConfig,
	}
}
