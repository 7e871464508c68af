package toolkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"

	"profiletk/internal/callgraph"
	"profiletk/internal/lineprof"
	"profiletk/internal/memprof"
	"profiletk/internal/sampler"
)

// ErrNotFunction indicates a value passed as a function to instrument that
// is neither a func nor a function name.
var ErrNotFunction = errors.New("not a function")

// FuncName returns the symbol name of fn as it appears in profiles. fn may
// also be a string, which is returned as is.
func FuncName(fn any) (string, error) {
	if name, ok := fn.(string); ok {
		return name, nil
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", fmt.Errorf("%w: %T", ErrNotFunction, fn)
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "", fmt.Errorf("%w: no symbol for %T", ErrNotFunction, fn)
	}
	// Method values are wrapped in a "-fm" trampoline.
	return strings.TrimSuffix(f.Name(), "-fm"), nil
}

func funcNames(target Target, funcs []any) ([]string, error) {
	name, err := FuncName(target)
	if err != nil {
		return nil, err
	}
	names := []string{name}
	for _, fn := range funcs {
		n, err := FuncName(fn)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

// LineTimes CPU-profiles one invocation of target and writes the time spent
// on each source line of target and of funcs, which must be called from
// target. funcs holds func values or symbol names.
func (s *Session) LineTimes(w io.Writer, target Target, funcs ...any) error {
	names, err := funcNames(target, funcs)
	if err != nil {
		return err
	}

	s.run.Lock()
	defer s.run.Unlock()

	prof, err := sampler.CaptureCPU(target)
	if err != nil {
		return err
	}
	return lineprof.WriteTimes(w, lineprof.CollectCPU(prof, names), s.src)
}

// LineMemory records the allocations of one invocation of target and
// writes them per source line of target and of funcs.
func (s *Session) LineMemory(w io.Writer, target Target, funcs ...any) error {
	names, err := funcNames(target, funcs)
	if err != nil {
		return err
	}

	s.run.Lock()
	defer s.run.Unlock()

	prof, err := memprof.CaptureAllocs(s.opts.MemProfileRate, target)
	if err != nil {
		return err
	}
	return memprof.WriteLines(w, memprof.Lines(prof, names), s.src)
}

// MemoryUsage samples the resident memory of the process while target runs
// and writes the mean.
func (s *Session) MemoryUsage(ctx context.Context, w io.Writer, target Target) (memprof.Usage, error) {
	s.run.Lock()
	defer s.run.Unlock()

	u, err := memprof.SampleUsage(ctx, s.opts.MemoryInterval, target)
	if err != nil {
		return u, err
	}
	return u, memprof.WriteUsage(w, u)
}

// MemoryHotspots records the allocations of one invocation of target and
// writes the n source lines that allocated the most. n <= 0 uses the
// configured count.
func (s *Session) MemoryHotspots(w io.Writer, target Target, n int) error {
	if n <= 0 {
		n = s.opts.MemoryHotspots
	}

	s.run.Lock()
	defer s.run.Unlock()

	prof, err := memprof.CaptureAllocs(s.opts.MemProfileRate, target)
	if err != nil {
		return err
	}
	return memprof.WriteHotspots(w, memprof.Sites(prof), n, s.src)
}

// CallGraph CPU-profiles one invocation of target and renders its call
// graph to path. Paths ending in .dot receive DOT source; other extensions
// are rendered by Graphviz.
func (s *Session) CallGraph(ctx context.Context, target Target, path string) error {
	title, err := FuncName(target)
	if err != nil {
		return err
	}

	s.run.Lock()
	defer s.run.Unlock()

	prof, err := sampler.CaptureCPU(target)
	if err != nil {
		return err
	}

	g := callgraph.Build(prof, s.opts.Graph)
	if err := callgraph.Render(ctx, g, title, path, s.opts.DotBinary); err != nil {
		return err
	}

	s.logger.Debug().
		Str("path", path).
		Int("nodes", len(g.Nodes)).
		Int("edges", len(g.Edges)).
		Msg("Rendered call graph")
	return nil
}
