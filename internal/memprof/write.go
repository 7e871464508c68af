package memprof

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"profiletk/internal/lineprof"
	"profiletk/internal/source"
)

const kib = 1024.0

// WriteHotspots prints the top n allocation sites with their source line,
// followed by the total allocated across every site.
func WriteHotspots(w io.Writer, sites []Site, n int, src *source.Cache) error {
	bw := bufio.NewWriter(w)

	var total int64
	for _, s := range sites {
		total += s.Bytes
	}

	if n > len(sites) {
		n = len(sites)
	}
	for i := 0; i < n; i++ {
		s := sites[i]
		fmt.Fprintf(bw, "#%d: %s:%d: %.1f KiB\n", i+1, s.File, s.Line, float64(s.Bytes)/kib)
		if line := src.Line(s.File, s.Line); line != "" {
			bw.WriteString("     " + line + "\n")
		}
	}
	fmt.Fprintf(bw, "Total amount allocated: %.1f KiB\n", float64(total)/kib)

	return bw.Flush()
}

// WriteLines prints a line-by-line allocation listing for each function.
func WriteLines(w io.Writer, fls []lineprof.FunctionLines, src *source.Cache) error {
	bw := bufio.NewWriter(w)

	for _, fl := range fls {
		if fl.File == "" {
			fmt.Fprintf(bw, "Function: %s (no allocations)\n\n", fl.Function)
			continue
		}
		fmt.Fprintf(bw, "Filename: %s\n", fl.File)
		fmt.Fprintf(bw, "Function: %s allocated %.1f KiB in %d objects\n\n", fl.Function, float64(fl.Total)/kib, fl.Hits)

		header := fmt.Sprintf("%6s %14s %12s   %s", "Line #", "Increment", "Occurrences", "Line Contents")
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
				fmt.Fprintf(bw, "%6d %14s %12s   %s\n", n, "", "", text)
				continue
			}
			fmt.Fprintf(bw, "%6d %10.1f KiB %12d   %s\n", n, float64(st.Value)/kib, st.Hits, text)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
