// Package cli provides shared configuration and utilities for the snapmig CLI.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Process exit codes. Scripts can tell a bad invocation (config, version)
// apart from an unreachable database or a failed write.
const (
	ExitSuccess   = 0
	ExitGeneral   = 1
	ExitConfig    = 2
	ExitVersion   = 3
	ExitDBConnect = 4
	ExitOutput    = 5
	ExitObject    = 6
)

// ExitError carries the exit code a command failure maps to. Message
// names the step that failed; Err is the underlying snapmig error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitWithError prints err to stderr and exits. Errors that are not an
// ExitError exit with ExitGeneral.
func ExitWithError(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes err to w and returns its exit code.
func report(w io.Writer, err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_, _ = fmt.Fprintln(w, "Error:", exitErr.Error())
		return exitErr.Code
	}
	_, _ = fmt.Fprintln(w, "Error:", err)
	return ExitGeneral
}

// ConfigError reports a missing or invalid setting: no database section,
// an unknown adapter, or a bad --types/--export value.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// VersionError reports a target version that is malformed or already
// present under the migrations root.
func VersionError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitVersion, Message: msg, Err: err}
}

// DBConnectError reports a database that could not be opened or pinged.
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// OutputError reports a migrations directory or file that could not be
// created or written.
func OutputError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitOutput, Message: msg, Err: err}
}

// ObjectError reports a schema object that is missing, of a type snapmig
// cannot generate, or whose definition could not be rewritten.
func ObjectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitObject, Message: msg, Err: err}
}

// GeneralError wraps any other failure.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}
