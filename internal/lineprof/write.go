package lineprof

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/pprof/profile"

	"profiletk/internal/sampler"
	"profiletk/internal/source"
)

// CollectCPU collects per-line CPU time of funcs from a CPU profile.
func CollectCPU(p *profile.Profile, funcs []string) []FunctionLines {
	hitIdx := -1
	for i, st := range p.SampleType {
		if st.Type == "samples" {
			hitIdx = i
		}
	}
	return Collect(p, funcs, sampler.CPUValueIndex(p), hitIdx)
}

// WriteTimes prints a line-by-line timing listing for each function. Time
// values are CPU nanoseconds and are printed in microseconds.
func WriteTimes(w io.Writer, fls []FunctionLines, src *source.Cache) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Timer unit: 1e-06 s\n\n")

	for _, fl := range fls {
		fmt.Fprintf(bw, "Total time: %g s\n", float64(fl.Total)/1e9)
		if fl.File == "" {
			fmt.Fprintf(bw, "Function: %s (no samples)\n\n", fl.Function)
			continue
		}
		fmt.Fprintf(bw, "File: %s\n", fl.File)
		fmt.Fprintf(bw, "Function: %s at line %d\n\n", fl.Function, fl.Start)

		header := fmt.Sprintf("%6s %9s %12s %8s %8s  %s", "Line #", "Hits", "Time", "Per Hit", "% Time", "Line Contents")
		bw.WriteString(header + "\n")
		bw.WriteString(strings.Repeat("=", len(header)) + "\n")

		first := fl.Start
		if first <= 0 && len(fl.Lines) > 0 {
			first = fl.Lines[0].Line
		}
		for n := first; n <= fl.Last(); n++ {
			text := src.Line(fl.File, n)
			st, ok := fl.Stat(n)
			if !ok {
				fmt.Fprintf(bw, "%6d %9s %12s %8s %8s  %s\n", n, "", "", "", "", text)
				continue
			}
			us := float64(st.Value) / 1e3
			perHit := 0.0
			if st.Hits > 0 {
				perHit = us / float64(st.Hits)
			}
			pct := 0.0
			if fl.Total > 0 {
				pct = 100 * float64(st.Value) / float64(fl.Total)
			}
			fmt.Fprintf(bw, "%6d %9d %12.1f %8.1f %8.1f  %s\n", n, st.Hits, us, perHit, pct, text)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
