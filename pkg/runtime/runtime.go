// Package runtime defines the contract of the external agent runtime that
// executes a task: a prompt, a mapping of auxiliary argument names to strings
// and a step limit in; an arbitrary result or an error out.
//
// Subpackages adapt concrete runtimes: command runs an agent program through
// a sandbox, gateway talks JSON-RPC over a WebSocket.
package runtime

import (
	"context"
	"errors"
)

// ErrNoOutput is returned when a runtime finishes without a final answer
var ErrNoOutput = errors.New("agent runtime returned no output")

// Request is one task handed to a runtime.
type Request struct {
	// Prompt is the task plus the instruction block
	Prompt string `json:"prompt"`

	// Args maps variable names to file paths
	Args map[string]string `json:"additional_args"`

	// MaxSteps bounds the runtime's reasoning/execution steps
	MaxSteps int `json:"max_steps"`

	// AuthorizedImports lists modules the agent's code may import
	AuthorizedImports []string `json:"authorized_imports,omitempty"`
}

// Runtime executes a request and returns the agent's final answer.
type Runtime interface {
	Run(ctx context.Context, req Request) (any, error)
}

// Func adapts a function to the Runtime interface.
type Func func(ctx context.Context, req Request) (any, error)

// Run calls f(ctx, req).
func (f Func) Run(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// ModelOptions are forwarded to runtimes that construct their own model client.
type ModelOptions struct {
	Model       string  `json:"model"`
	APIBase     string  `json:"api_base,omitempty"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Seed        int     `json:"seed"`
}
