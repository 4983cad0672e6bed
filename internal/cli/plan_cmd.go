package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/semaflow/semaflow/internal/planner"
)

func newPlanCmd(modelDir, dialectName *string) *cobra.Command {
	reqFlags := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compile a query request into SQL",
		Long:  "Loads --model-dir, compiles the given request against it, and prints the resulting SQL (spec.md §6's offline entry point into internal/planner.Compile).",
		RunE: func(c *cobra.Command, _ []string) error {
			logger := cliLogger(os.Stderr)

			reg, err := loadRegistry(c.Context(), *modelDir, logger)
			if err != nil {
				return err
			}

			d, err := dialectByName(*dialectName)
			if err != nil {
				return err
			}

			qr, err := reqFlags.build()
			if err != nil {
				return err
			}

			result, err := planner.Compile(reg, qr, planner.Options{Dialect: d})
			if err != nil {
				return err
			}

			fmt.Fprintln(c.OutOrStdout(), result.SQL)
			return nil
		},
	}

	addRequestFlags(cmd, reqFlags)
	return cmd
}
