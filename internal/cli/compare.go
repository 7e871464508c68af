package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"profiletk/internal/analyzer"
)

func newCompareCmd(e *env) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "compare BASE TARGET RUN=FILE...",
		Short: "Compare two runs function by function and flag regressions",
		Long: `Load the given reports, then compare run TARGET against run BASE.

Examples:
  profiletk compare before after before=v1.txt after=v2.txt
  profiletk compare v1 v2 v1.txt v2.txt --threshold 25`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, target := args[0], args[1]

			session, err := e.newSession()
			if err != nil {
				return err
			}
			if _, err := ingestRuns(session, args[2:]); err != nil {
				return err
			}

			deltas, err := analyzer.CompareRuns(session.TimingTable(), base, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, d := range deltas {
				fmt.Fprintln(out, analyzer.FormatDelta(d))
			}

			issues := analyzer.DetectRegressions(deltas, threshold)
			if len(issues) == 0 {
				fmt.Fprintf(out, "\nNo regressions above %.1f%%\n", threshold)
				return nil
			}

			fmt.Fprintf(out, "\n%d regression(s):\n", len(issues))
			for _, issue := range issues {
				fmt.Fprintf(out, "  [%s] %s %s: %s\n", issue.Severity, issue.Category, issue.Function, issue.Description)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 10, "Minimum growth in percent to flag")

	return cmd
}
