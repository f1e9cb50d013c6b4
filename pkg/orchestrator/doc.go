// Package orchestrator runs one task against an agent runtime with typed
// variables handed over as temporary files.
//
// Invariants:
// - Every file stored for a call is removed before Run returns, on success,
//   runtime failure, serialization failure, cancellation or runtime panic.
// - The runtime receives file paths, never the original values.
// - Run never returns an error value and never panics; failures are reported
//   through Result.Err.
//
// Usage:
//
//	orch, _ := orchestrator.New(orchestrator.Config{Runtime: rt, Logger: logger})
//	result := orch.Run(ctx, "Sum the numbers", map[string]any{"numbers": nums}, 10)
//	if result.Failed() {
//		return result.Err
//	}
package orchestrator
