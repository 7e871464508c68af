// Package lineprof attributes profile samples to the source lines of a
// chosen set of functions and prints them line by line.
package lineprof

import (
	"sort"

	"github.com/google/pprof/profile"

	"profiletk/internal/sampler"
)

// LineStat holds what was sampled on one source line.
type LineStat struct {
	Line  int64
	Hits  int64
	Value int64
}

// FunctionLines is the per-line breakdown of one function.
type FunctionLines struct {
	Function string
	File     string
	Start    int64
	Hits     int64
	Total    int64
	Lines    []LineStat
}

// Stat returns the statistics of line n, and whether it was sampled.
func (fl FunctionLines) Stat(n int64) (LineStat, bool) {
	i := sort.Search(len(fl.Lines), func(i int) bool { return fl.Lines[i].Line >= n })
	if i < len(fl.Lines) && fl.Lines[i].Line == n {
		return fl.Lines[i], true
	}
	return LineStat{}, false
}

// Last returns the highest sampled line, or Start when nothing was sampled.
func (fl FunctionLines) Last() int64 {
	if len(fl.Lines) == 0 {
		return fl.Start
	}
	return fl.Lines[len(fl.Lines)-1].Line
}

// Collect attributes samples of p to the lines of the named functions. A
// sample is charged to the line executing in the innermost frame of each
// named function on its stack, so a line that calls out is charged for the
// callee's samples too. valueIdx selects the sample value to sum and
// hitIdx the value counted as hits; a negative hitIdx counts one hit per
// sample.
//
// Functions are returned in the order of funcs. Names that never appear in
// the profile yield an entry without lines.
func Collect(p *profile.Profile, funcs []string, valueIdx, hitIdx int) []FunctionLines {
	out := make([]FunctionLines, 0, len(funcs))
	index := make(map[string]int, len(funcs))
	lines := make([]map[int64]*LineStat, 0, len(funcs))
	for _, name := range funcs {
		if _, dup := index[name]; dup {
			continue
		}
		index[name] = len(out)
		out = append(out, FunctionLines{Function: name})
		lines = append(lines, make(map[int64]*LineStat))
	}

	if valueIdx >= 0 {
		for _, s := range p.Sample {
			v := s.Value[valueIdx]
			if v == 0 {
				continue
			}
			hits := int64(1)
			if hitIdx >= 0 {
				hits = s.Value[hitIdx]
			}

			frames := sampler.Stack(s)
			charged := make(map[int]bool)
			for i := len(frames) - 1; i >= 0; i-- {
				f := frames[i]
				fi, ok := index[f.Function]
				if !ok || charged[fi] {
					continue
				}
				charged[fi] = true

				fl := &out[fi]
				if fl.File == "" {
					fl.File = f.File
					fl.Start = f.Start
				}
				fl.Hits += hits
				fl.Total += v

				st, ok := lines[fi][f.Line]
				if !ok {
					st = &LineStat{Line: f.Line}
					lines[fi][f.Line] = st
				}
				st.Hits += hits
				st.Value += v
			}
		}
	}

	for i := range out {
		for _, st := range lines[i] {
			out[i].Lines = append(out[i].Lines, *st)
		}
		sort.Slice(out[i].Lines, func(a, b int) bool {
			return out[i].Lines[a].Line < out[i].Lines[b].Line
		})
	}
	return out
}
