package orchestrator

import (
	"fmt"
	"time"
)

// Variable is one named value handed to the agent.
type Variable struct {
	Name  string
	Value any
}

// Result is the outcome of one run. Err is nil on success.
type Result struct {
	RunID    string        `json:"run_id"`
	Output   any           `json:"output,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`

	// CleanupWarnings lists temp files that could not be removed; they never
	// turn a successful run into a failed one.
	CleanupWarnings []error `json:"-"`
}

// Failed reports whether the run produced no usable output
func (r Result) Failed() bool {
	return r.Err != nil
}

// RuntimeError wraps a failure raised by the agent runtime.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("agent runtime failed: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
