// Package memprof measures the memory a single function invocation uses:
// allocation sites from the runtime heap profile and whole-process resident
// memory sampled while the function runs.
package memprof

import (
	"bytes"
	"fmt"
	"runtime"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/google/pprof/profile"

	"profiletk/internal/lineprof"
	"profiletk/internal/sampler"
)

// CaptureAllocs runs fn and returns the allocations made while it ran as a
// delta of two allocs profiles, together with fn's error, unchanged. A
// positive rate overrides runtime.MemProfileRate for the duration of the
// call; 1 records every allocation.
func CaptureAllocs(rate int, fn func() error) (*profile.Profile, error) {
	if rate > 0 {
		prev := runtime.MemProfileRate
		runtime.MemProfileRate = rate
		defer func() { runtime.MemProfileRate = prev }()
	}

	before, err := snapshot()
	if err != nil {
		return nil, err
	}

	runErr := fn()

	after, err := snapshot()
	if err != nil {
		return nil, err
	}

	// Parse only after both snapshots so parsing allocations stay out of
	// the delta.
	beforeProf, err := parse(before)
	if err != nil {
		return nil, err
	}
	afterProf, err := parse(after)
	if err != nil {
		return nil, err
	}

	beforeProf.Scale(-1)
	delta, err := profile.Merge([]*profile.Profile{afterProf, beforeProf})
	if err != nil {
		return nil, fmt.Errorf("failed to diff allocs profiles: %w", err)
	}
	return delta, runErr
}

func snapshot() ([]byte, error) {
	// Allocation records are published at the end of a GC cycle.
	runtime.GC()

	var buf bytes.Buffer
	if err := pprof.Lookup("allocs").WriteTo(&buf, 0); err != nil {
		return nil, fmt.Errorf("failed to write allocs profile: %w", err)
	}
	return buf.Bytes(), nil
}

func parse(data []byte) (*profile.Profile, error) {
	p, err := profile.ParseData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse allocs profile: %w", err)
	}
	return p, nil
}

// sampleIndex returns the index of the named sample type, or -1.
func sampleIndex(p *profile.Profile, name string) int {
	for i, st := range p.SampleType {
		if st.Type == name {
			return i
		}
	}
	return -1
}

// SpaceIndex returns the index of the allocated bytes value, falling back
// to the last sample type for profiles that do not name it.
func SpaceIndex(p *profile.Profile) int {
	if i := sampleIndex(p, "alloc_space"); i >= 0 {
		return i
	}
	return len(p.SampleType) - 1
}

// Site is one source line that allocated.
type Site struct {
	Function string
	File     string
	Line     int64
	Bytes    int64
	Objects  int64
}

// Sites aggregates the allocations of p by source line, attributing each
// sample to its innermost frame outside the runtime. Sites are ordered by
// bytes, largest first.
func Sites(p *profile.Profile) []Site {
	space := SpaceIndex(p)
	objects := sampleIndex(p, "alloc_objects")
	if space < 0 {
		return nil
	}

	type key struct {
		file string
		line int64
	}
	byLine := make(map[key]*Site)
	var order []key

	for _, s := range p.Sample {
		b := s.Value[space]
		if b <= 0 {
			continue
		}
		f, ok := allocFrame(sampler.Stack(s))
		if !ok {
			continue
		}
		k := key{file: f.File, line: f.Line}
		site, ok := byLine[k]
		if !ok {
			site = &Site{Function: f.Function, File: f.File, Line: f.Line}
			byLine[k] = site
			order = append(order, k)
		}
		site.Bytes += b
		if objects >= 0 {
			site.Objects += s.Value[objects]
		}
	}

	sites := make([]Site, 0, len(order))
	for _, k := range order {
		sites = append(sites, *byLine[k])
	}
	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].Bytes > sites[j].Bytes
	})
	return sites
}

func allocFrame(frames []sampler.Frame) (sampler.Frame, bool) {
	for i := len(frames) - 1; i >= 0; i-- {
		if !strings.HasPrefix(frames[i].Function, "runtime.") {
			return frames[i], true
		}
	}
	return sampler.Frame{}, false
}

// Lines breaks the allocations of p down by line for the named functions.
func Lines(p *profile.Profile, funcs []string) []lineprof.FunctionLines {
	return lineprof.Collect(p, funcs, SpaceIndex(p), sampleIndex(p, "alloc_objects"))
}
