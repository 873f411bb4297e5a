package errors

import (
	"errors"
	"fmt"
)

// CommandError represents an error that occurred during command execution,
// storing the exit code the process should terminate with and the arguments
// that produced the failure.
type CommandError struct {
	ExitCode    int
	CommonError string
	Args        interface{}
	Result      interface{}
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError instance, encapsulating args, result, and the error message.
func NewCommandError(args interface{}, result interface{}, err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Args:        args,
		Result:      result,
	}
}

// ExitCodeFromError extracts the exit code from an error chain.
// Plain errors map to exit code 1, nil to 0.
func ExitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return 1
}

// UnsupportedError indicates an operation that the connected server edition
// or version does not provide.
type UnsupportedError struct {
	Operation string
	Edition   string
}

// Error implements the error interface for UnsupportedError.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("operation %q is not supported on %q", e.Operation, e.Edition)
}

// NewUnsupportedError creates a new UnsupportedError instance.
func NewUnsupportedError(operation, edition string) error {
	return &UnsupportedError{
		Operation: operation,
		Edition:   edition,
	}
}
