// Package cli implements the semaflow command-line tool: offline
// "plan"/"explain"/"validate" subcommands over a YAML model directory, in
// the same shape as the teacher's pkg/cli root command (spec.md §6's
// loader plus internal/planner, exercised without an HTTP server).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		modelDir string
		dialect  string
		noColor  bool
	)

	rootCmd := &cobra.Command{
		Use:           "semaflow",
		Short:         "SemaFlow semantic query compiler",
		Long:          "Compiles metric requests against a YAML semantic model into dialect-specific SQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&modelDir, "model-dir", "model", "Directory containing tables/ and flows/")
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "duckdb", "Target SQL dialect (duckdb, mysql, odbc)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newPlanCmd(&modelDir, &dialect))
	rootCmd.AddCommand(newExplainCmd(&modelDir, &dialect, &noColor))
	rootCmd.AddCommand(newValidateCmd(&modelDir))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

var (
	version = "dev"
	commit  = "none"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the semaflow version",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("semaflow %s (%s)\n", version, commit)
			return nil
		},
	}
}
