package engine

import (
	"fmt"
	"strings"
)

// ExecutionError reports that the engine itself failed to run
type ExecutionError struct {
	Err    error
	Output string // tail of the engine's combined output, if any
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("engine execution failed: %v", e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + lastLine(out)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SummaryMissingError reports a run that finished without a usable summary
type SummaryMissingError struct {
	Reason string
}

func (e *SummaryMissingError) Error() string {
	if e.Reason == "" {
		return "test summary not available"
	}
	return "test summary not available: " + e.Reason
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
