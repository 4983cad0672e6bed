package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/semaflow/semaflow/internal/loader"
	"github.com/semaflow/semaflow/internal/planerr"
	"github.com/semaflow/semaflow/internal/validate"
)

func newValidateCmd(modelDir *string) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a semantic model directory",
		Long:  "Loads tables/ and flows/ under --model-dir and reports every structural finding (unresolved columns, bad join keys, mixed data sources, and the rest of spec.md §4.3's checks).",
		RunE: func(c *cobra.Command, _ []string) error {
			mode := validate.ModeWarn
			if strict {
				mode = validate.ModeStrict
			}

			logger := cliLogger(os.Stderr)
			res, err := loader.LoadDir(c.Context(), *modelDir, nil, mode, logger)
			if err != nil {
				if res != nil && len(res.Findings) > 0 {
					printFindings(c.OutOrStdout(), res.Findings)
				}
				return err
			}

			if len(res.Findings) == 0 {
				fmt.Fprintf(c.OutOrStdout(), "%s: valid (%d tables, %d flows, no findings)\n", *modelDir, len(res.Registry.Tables()), len(res.Registry.Flows()))
				return nil
			}

			printFindings(c.OutOrStdout(), res.Findings)
			fmt.Fprintf(c.OutOrStdout(), "\n%d finding(s) (non-fatal under --strict=false)\n", len(res.Findings))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", true, "Treat any finding as a failure (exit non-zero)")
	return cmd
}

func printFindings(w io.Writer, findings planerr.ValidationErrors) {
	for _, f := range findings {
		fmt.Fprintf(w, "[%s] flow=%q table=%q field=%q: %s\n", f.Kind, f.Flow, f.Table, f.Field, f.Message)
	}
}
