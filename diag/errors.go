// Package diag holds the error kinds shared by every stage of the backend.
package diag

import "fmt"

// ConfigurationError reports a session that cannot be built as configured:
// an unmapped architecture, an output kind that cannot reach a stage, or a
// profile that does not fit the target. It is always raised before any
// external tool runs.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// Configurationf builds a ConfigurationError.
func Configurationf(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// ModuleLinkError reports a failure to merge a bitcode file into the module.
type ModuleLinkError struct {
	Input string
	Err   error
}

func (e *ModuleLinkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to link %s", e.Input)
	}
	return fmt.Sprintf("failed to link %s: %v", e.Input, e.Err)
}

// CompilationError is what the linker surfaces when a toolchain command
// fails. Err carries the tool failure with its captured diagnostics.
type CompilationError struct {
	Tool string
	Err  error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s invocation reported errors", e.Tool)
}

func (e *CompilationError) Cause() error  { return e.Err }
func (e *CompilationError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	_, ok := cause(err).(*ConfigurationError)
	return ok
}

// cause unwraps both pkg/errors causers and stdlib wrappers.
func cause(err error) error {
	for err != nil {
		switch e := err.(type) {
		case interface{ Cause() error }:
			err = e.Cause()
		case interface{ Unwrap() error }:
			err = e.Unwrap()
		default:
			return err
		}
	}
	return err
}
