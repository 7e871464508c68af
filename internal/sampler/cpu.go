package sampler

import (
	"bytes"
	"fmt"
	"runtime/pprof"

	"github.com/google/pprof/profile"
)

// CaptureCPU runs fn under the runtime CPU profiler and returns the parsed
// profile together with fn's error, unchanged. The profiler is stopped on
// every exit path, including a panic in fn.
func CaptureCPU(fn func() error) (*profile.Profile, error) {
	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSamplerActive, err)
	}

	runErr := func() error {
		defer pprof.StopCPUProfile()
		return fn()
	}()

	p, err := profile.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cpu profile: %w", err)
	}
	return p, runErr
}

// CPUValueIndex returns the index of the CPU time value in each sample, or
// the last value when the profile does not name one.
func CPUValueIndex(p *profile.Profile) int {
	for i, st := range p.SampleType {
		if st.Type == "cpu" {
			return i
		}
	}
	return len(p.SampleType) - 1
}

// Frame is one resolved function of a sampled stack.
type Frame struct {
	Function string
	File     string
	Line     int64 // line executing in this frame
	Start    int64 // first line of the function
}

// Stack expands a sample into frames ordered root first. Inlined calls are
// expanded into their own frames.
func Stack(s *profile.Sample) []Frame {
	frames := make([]Frame, 0, len(s.Location))
	for i := len(s.Location) - 1; i >= 0; i-- {
		loc := s.Location[i]
		if len(loc.Line) == 0 {
			frames = append(frames, Frame{Function: fmt.Sprintf("0x%x", loc.Address)})
			continue
		}
		for j := len(loc.Line) - 1; j >= 0; j-- {
			ln := loc.Line[j]
			f := Frame{Line: ln.Line}
			if ln.Function != nil {
				f.Function = ln.Function.Name
				f.File = ln.Function.Filename
				f.Start = ln.Function.StartLine
			} else {
				f.Function = fmt.Sprintf("0x%x", loc.Address)
			}
			frames = append(frames, f)
		}
	}
	return frames
}

// HasRunLabel reports whether the sample was taken while a goroutine carried
// the RunLabel pprof label.
func HasRunLabel(s *profile.Sample) bool {
	return len(s.Label[RunLabel]) > 0
}
