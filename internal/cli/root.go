package cli

import (
	"context"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// options holds the global flags shared by every subcommand
type options struct {
	cfgFile  string
	logLevel string
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "handoff",
		Short: "Handoff - typed variable hand-off to code-executing agents",
		Long: `Handoff runs a task on a code-executing agent runtime and hands it
variables as typed temporary files: text, JSON, NumPy arrays and Parquet tables.
The agent receives file paths plus loading instructions, never the raw values,
and every file is removed when the run ends.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.handoff/handoff.json)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	rootCmd.AddCommand(
		newRunCmd(opts),
		newInstructionsCmd(),
		newServeCmd(opts),
		newConfigCmd(opts),
	)

	return rootCmd
}

// Execute runs the CLI with ctx as the base context of every command.
// This is called by main.main().
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
