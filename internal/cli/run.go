package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrRunFailed is returned after a failed run has been reported on stdout
var ErrRunFailed = errors.New("run failed")

// runOutput is printed to stdout after every run
type runOutput struct {
	RunID  string `json:"run_id"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newRunCmd(opts *options) *cobra.Command {
	var (
		task     string
		maxSteps int
		bindings bindingFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a task with variables handed over as files",
		Long: `Run a task on the configured agent runtime. Each variable is written to a
temporary file in the format of its type and the agent receives the path plus
instructions for loading it. Prints {"run_id", "output"} as JSON.`,
		Example: `  handoff run --task "Sum the numbers" --json numbers=numbers.json
  handoff run --task "Describe the sales" --csv sales=sales.csv --var region=EMEA`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := bindings.variables()
			if err != nil {
				return err
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			rt, err := a.newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			orch, err := a.newOrchestrator(rt)
			if err != nil {
				return err
			}

			result := orch.RunVariables(cmd.Context(), task, variables, maxSteps)

			out := runOutput{RunID: result.RunID, Output: result.Output}
			if result.Failed() {
				out.Error = result.Err.Error()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}

			if result.Failed() {
				return ErrRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "task for the agent (required)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step limit for the agent (default from config)")
	cmd.Flags().StringArrayVar(&bindings.text, "var", nil, "text variable as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&bindings.json, "json", nil, "JSON variable as name=file.json (repeatable)")
	cmd.Flags().StringArrayVar(&bindings.csv, "csv", nil, "table variable as name=file.csv (repeatable)")
	cmd.Flags().StringArrayVar(&bindings.arrays, "npy", nil, "2-D numeric array as name=file.npy (repeatable)")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}
