package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	tkerrors "profiletk/internal/errors"
	"profiletk/internal/timing"
)

func newTableCmd(e *env) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "table RUN=FILE...",
		Short: "Build the per-function timing table of several reports",
		Long: `Load each report as a run and print the timing table: one row per run,
one column per function, zero where a run did not report a function.

Examples:
  profiletk table baseline=base.txt optimized=opt.txt
  profiletk table base.txt opt.txt --format csv --output timings.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := e.newSession()
			if err != nil {
				return err
			}
			if _, err := ingestRuns(session, args); err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				//nolint:gosec // G304: Output path is chosen by the operator.
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer tkerrors.DeferClose(e.logger, f, "failed to close output file")
				w = f
			}

			return session.TimingTable().Format(w, timing.OutputFormat(format))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}
