package orchestrator

import "fmt"

// State is a step of a run
type State int

const (
	StateIdle State = iota
	StateResolving
	StateInvoking
	StateSummarizing
	StatePersisting
	StateCompleted
	StateErrored
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateResolving:   "resolving",
	StateInvoking:    "invoking",
	StateSummarizing: "summarizing",
	StatePersisting:  "persisting",
	StateCompleted:   "completed",
	StateErrored:     "errored",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition follows s
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

// RunError is returned by Run when a run ends in StateErrored. State is
// the step that failed; Err is the typed cause.
type RunError struct {
	State      State
	ReportName string
	Err        error
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}
