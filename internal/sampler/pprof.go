package sampler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"profiletk/internal/report"
)

// PprofOptions configures a Pprof sampler.
type PprofOptions struct {
	// Program is printed on the marker line. Defaults to the executable name.
	Program string
	// FilterRunLabel keeps only samples taken under the RunLabel pprof label.
	FilterRunLabel bool
	// Format is the report layout to render. Defaults to report.FormatV1.
	Format *report.Format
	Logger zerolog.Logger
}

// Pprof samples with the Go runtime CPU profiler. Only one CPU profile can
// be active per process, so at most one Pprof sampler may be armed at a time.
type Pprof struct {
	program string
	filter  bool
	format  report.Format
	logger  zerolog.Logger

	mu     sync.Mutex
	buf    *bytes.Buffer
	active bool
}

// NewPprof creates a CPU sampling engine.
func NewPprof(opts PprofOptions) *Pprof {
	if opts.Program == "" {
		opts.Program = filepath.Base(os.Args[0])
	}
	format := report.FormatV1
	if opts.Format != nil {
		format = *opts.Format
	}
	return &Pprof{
		program: opts.Program,
		filter:  opts.FilterRunLabel,
		format:  format,
		logger:  opts.Logger.With().Str("component", "pprof_sampler").Logger(),
	}
}

// Start arms the runtime CPU profiler.
func (p *Pprof) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return ErrSamplerActive
	}

	buf := new(bytes.Buffer)
	if err := pprof.StartCPUProfile(buf); err != nil {
		return fmt.Errorf("%w: %v", ErrSamplerActive, err)
	}
	p.buf = buf
	p.active = true
	return nil
}

// Stop disarms the profiler and renders everything it sampled.
func (p *Pprof) Stop() (report.Raw, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return "", ErrSamplerIdle
	}
	pprof.StopCPUProfile()
	p.active = false

	prof, err := profile.Parse(p.buf)
	p.buf = nil
	if err != nil {
		return "", fmt.Errorf("failed to parse cpu profile: %w", err)
	}

	var keep func(*profile.Sample) bool
	if p.filter {
		keep = HasRunLabel
	}
	raw, err := Render(prof, p.format, p.program, keep)
	if err != nil {
		return "", err
	}

	p.logger.Debug().
		Int("samples", len(prof.Sample)).
		Int("report_bytes", len(raw)).
		Msg("Rendered CPU profile report")

	return raw, nil
}

// treeNode aggregates samples for one frame at one position of the tree.
type treeNode struct {
	frame    Frame
	total    int64
	self     int64
	order    int
	children []*treeNode
	index    map[string]*treeNode
}

func (n *treeNode) child(f Frame) *treeNode {
	key := f.Function + "\x00" + f.File + "\x00" + strconv.FormatInt(f.Start, 10)
	if c, ok := n.index[key]; ok {
		return c
	}
	if n.index == nil {
		n.index = make(map[string]*treeNode)
	}
	c := &treeNode{frame: f, order: len(n.children)}
	n.index[key] = c
	n.children = append(n.children, c)
	return c
}

// Render builds a call tree from the CPU samples of prof accepted by keep
// (all samples when keep is nil) and encodes it in format. Times are in
// seconds.
func Render(prof *profile.Profile, format report.Format, program string, keep func(*profile.Sample) bool) (report.Raw, error) {
	vi := CPUValueIndex(prof)
	root := &treeNode{}
	var count int64

	if vi >= 0 {
		for _, s := range prof.Sample {
			if keep != nil && !keep(s) {
				continue
			}
			v := s.Value[vi]
			if v == 0 {
				continue
			}
			count += s.Value[0]
			node := root
			for _, f := range Stack(s) {
				node = node.child(f)
				node.total += v
			}
			if node != root {
				node.self += v
			}
			root.total += v
		}
	}

	roots := make([]*report.Node, 0, len(root.children))
	for _, c := range sortedChildren(root) {
		roots = append(roots, toReportNode(c))
	}

	h := report.Header{
		Program:  program,
		Samples:  int(count),
		Duration: float64(prof.DurationNanos) / 1e9,
		CPUTime:  float64(root.total) / 1e9,
	}

	var buf bytes.Buffer
	if err := format.Encode(&buf, h, roots); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return report.Raw(buf.String()), nil
}

func sortedChildren(n *treeNode) []*treeNode {
	out := make([]*treeNode, len(n.children))
	copy(out, n.children)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].total != out[j].total {
			return out[i].total > out[j].total
		}
		return out[i].order < out[j].order
	})
	return out
}

func toReportNode(n *treeNode) *report.Node {
	rn := &report.Node{
		Time:     float64(n.total) / 1e9,
		Name:     n.frame.Function,
		Location: location(n.frame),
	}
	if len(n.children) == 0 {
		return rn
	}

	children := make([]*report.Node, 0, len(n.children)+1)
	selfAdded := n.self == 0
	for _, c := range sortedChildren(n) {
		if !selfAdded && n.self >= c.total {
			children = append(children, selfNode(n))
			selfAdded = true
		}
		children = append(children, toReportNode(c))
	}
	if !selfAdded {
		children = append(children, selfNode(n))
	}
	rn.Children = children
	return rn
}

func selfNode(n *treeNode) *report.Node {
	return &report.Node{
		Time:     float64(n.self) / 1e9,
		Name:     "[self]",
		Location: location(n.frame),
	}
}

// location is the short file:line shown next to a frame.
func location(f Frame) string {
	if f.File == "" {
		return "[unknown]"
	}
	line := f.Start
	if line == 0 {
		line = f.Line
	}
	return fmt.Sprintf("%s:%d", filepath.Base(f.File), line)
}
