package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"profiletk/internal/timing"
	"profiletk/internal/toolkit"
)

func newDemoCmd(e *env) *cobra.Command {
	var (
		scale  int
		top    int
		lines  bool
		memory bool
		graph  string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Profile a built-in workload with every engine",
		Long: `Record a "baseline" and an "optimized" run of a built-in workload, then
print the timing table and the baseline hotspots. Optional flags add the
line-level timer, the memory engines and a call graph.

Examples:
  profiletk demo
  profiletk demo --lines --memory --graph demo.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			session, err := e.newSession()
			if err != nil {
				return err
			}

			baseline := workload(2_000_000*scale, 400_000*scale)
			optimized := workload(800_000*scale, 0)

			if _, err := session.Record(ctx, "baseline", baseline); err != nil {
				return err
			}
			if _, err := session.Record(ctx, "optimized", optimized); err != nil {
				return err
			}

			fmt.Fprintln(out, "Timing table:")
			if err := session.TimingTable().Format(out, timing.FormatTable); err != nil {
				return err
			}

			fmt.Fprintln(out, "\nBaseline hotspots:")
			if err := session.PrintHotspots(out, "baseline", top); err != nil {
				return err
			}

			if lines {
				fmt.Fprintln(out, "\nLine timings:")
				if err := session.LineTimes(out, toolkit.Target(baseline), crunch, shuffle); err != nil {
					return err
				}
			}

			if memory {
				fmt.Fprintln(out, "\nMemory hotspots:")
				if err := session.MemoryHotspots(out, toolkit.Target(baseline), 0); err != nil {
					return err
				}
				fmt.Fprintln(out, "\nLine memory:")
				if err := session.LineMemory(out, toolkit.Target(baseline), shuffle); err != nil {
					return err
				}
				fmt.Fprintln(out, "\nMemory usage:")
				if _, err := session.MemoryUsage(ctx, out, toolkit.Target(baseline)); err != nil {
					return err
				}
			}

			if graph != "" {
				if err := session.CallGraph(ctx, toolkit.Target(baseline), graph); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nCall graph written to %s\n", graph)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&scale, "scale", 1, "Workload size multiplier")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of hotspots to show")
	cmd.Flags().BoolVar(&lines, "lines", false, "Also run the line-level timer")
	cmd.Flags().BoolVar(&memory, "memory", false, "Also run the memory engines")
	cmd.Flags().StringVar(&graph, "graph", "", "Render the call graph to this path (.dot, or any Graphviz format)")

	return cmd
}
