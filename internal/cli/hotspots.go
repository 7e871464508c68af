package cli

import (
	"github.com/spf13/cobra"
)

func newHotspotsCmd(e *env) *cobra.Command {
	var (
		top              int
		order            string
		excludeAggregate bool
		runID            string
	)

	cmd := &cobra.Command{
		Use:   "hotspots FILE",
		Short: "Rank the call tree positions of a report by time",
		Long: `Rank every call tree position of a report by time, annotated with its
call tree depth.

Examples:
  profiletk hotspots baseline.txt
  profiletk hotspots baseline.txt --top 5 --exclude-aggregate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("order") {
				e.cfg.Hotspots.Order = order
			}
			if cmd.Flags().Changed("exclude-aggregate") {
				e.cfg.Hotspots.ExcludeAggregate = excludeAggregate
			}
			if top <= 0 {
				top = e.cfg.Hotspots.Count
			}

			session, err := e.newSession()
			if err != nil {
				return err
			}

			arg := args[0]
			if runID != "" {
				arg = runID + "=" + arg
			}
			ids, err := ingestRuns(session, []string{arg})
			if err != nil {
				return err
			}

			return session.PrintHotspots(cmd.OutOrStdout(), ids[0], top)
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 0, "Number of hotspots to show (default from configuration)")
	cmd.Flags().StringVar(&order, "order", "time", "Sort key: time or label")
	cmd.Flags().BoolVar(&excludeAggregate, "exclude-aggregate", false, "Drop module, self and double-underscore frames")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: file name without extension)")

	return cmd
}
