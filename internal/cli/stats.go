package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"profiletk/internal/analyzer"
)

func newStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats RUN=FILE...",
		Short: "Summarize each function across several reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := e.newSession()
			if err != nil {
				return err
			}
			if _, err := ingestRuns(session, args); err != nil {
				return err
			}

			stats := analyzer.ComputeStatistics(session.TimingTable())
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Runs: %d  Functions: %d\n", stats.TotalRuns, stats.TotalFunctions)
			fmt.Fprintf(out, "Heaviest: %s (%.3f)  Lightest: %s (%.3f)\n\n",
				stats.HeaviestRun, stats.HeaviestRunTime, stats.LightestRun, stats.LightestRunTime)

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "FUNCTION\tRUNS\tMEAN\tMIN\tMAX\tSTDDEV")
			for _, fs := range stats.Functions {
				fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n",
					fs.Function, fs.Reported, fs.Mean, fs.Min, fs.Max, fs.StdDev)
			}
			return w.Flush()
		},
	}
}
