package cmd

import (
	"errors"

	"github.com/abdul-hamid-achik/hitboard/packages/source"
)

// Exit codes for hitboard CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed
	ExitTestFailure = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitRunError indicates the run could not complete
	ExitRunError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for an error
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCodeFor maps an error returned by a command to an exit code
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var loadErr *source.ConfigLoadError
	var fetchErr *source.ConfigFetchError
	if errors.As(err, &loadErr) || errors.As(err, &fetchErr) {
		return ExitConfigError
	}

	return ExitRunError
}
