package errors

import (
	"errors"
	"fmt"
)

// ValidationError reports a configuration value that cannot be used.
// It is fatal for the invocation that produced it.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", msg)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failure to produce a generated or self-healed file.
type GenerationError struct {
	Path    string
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "generation failed"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path == "" {
		return msg
	}
	return fmt.Sprintf("%s (%s)", msg, e.Path)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ExitError carries the exit status of a delegated subprocess.
type ExitError struct {
	Code    int
	Command string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// MissingBinaryError reports an external executable that is not installed.
type MissingBinaryError struct {
	Binary string
	Hint   string
}

func (e *MissingBinaryError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s not found in PATH", e.Binary)
	}
	return fmt.Sprintf("%s not found in PATH. %s", e.Binary, e.Hint)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsGeneration reports whether err is, or wraps, a GenerationError.
func IsGeneration(err error) bool {
	var target *GenerationError
	return errors.As(err, &target)
}

// IsMissingBinary reports whether err is, or wraps, a MissingBinaryError.
func IsMissingBinary(err error) bool {
	var target *MissingBinaryError
	return errors.As(err, &target)
}

// ExitCode maps err to a process exit status: 0 for nil, the child's
// status for an ExitError, 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 0 {
			return 1
		}
		return exitErr.Code
	}
	return 1
}

// Silent reports whether err only carries an exit status and has nothing
// useful to print beyond what the child process already wrote.
func Silent(err error) bool {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Err == nil
	}
	return false
}
