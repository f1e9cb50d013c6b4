package cli

import (
	"fmt"

	"github.com/harun/handoff/pkg/instructions"
	"github.com/harun/handoff/pkg/vars"
	"github.com/spf13/cobra"
)

func newInstructionsCmd() *cobra.Command {
	var specs []string

	cmd := &cobra.Command{
		Use:   "instructions",
		Short: "Print the loading instructions for a set of variables",
		Long: `Print the instruction block an agent receives for the given variables.
Kinds are text, structured, numeric-array and table. Without variables a
generic example is printed.`,
		Example: `  handoff instructions --var numbers=structured --var sales=table`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings := make([]instructions.Binding, 0, len(specs))
			for _, spec := range specs {
				name, tag, err := splitBinding(spec)
				if err != nil {
					return err
				}
				if !vars.ValidName(name) {
					return fmt.Errorf("%w: %q", vars.ErrInvalidName, name)
				}
				kind, err := vars.ParseKind(tag)
				if err != nil {
					return err
				}
				bindings = append(bindings, instructions.Binding{Name: name, Kind: kind})
			}

			builder, err := instructions.New()
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), builder.Build(bindings))
			return err
		},
	}

	cmd.Flags().StringArrayVar(&specs, "var", nil, "variable as name=kind (repeatable)")

	return cmd
}
