package report

import (
	"fmt"
	"io"
	"strings"
)

// Format describes the line layout of a report. Treat a Format value as a
// versioned contract: when the producing profiler changes its layout, add a
// new version instead of editing an existing one.
type Format struct {
	Version     int
	Marker      string   // token on the line that opens the data section
	Separator   string   // structural marker between tree glyphs and the entry
	MinTokens   int      // data lines need at least this many whitespace tokens
	Excluded    []string // substrings that mark aggregate or internal frames
	IndentWidth int      // runes consumed per call tree level
}

// FormatV1 is the layout written by the sampler and expected by default.
var FormatV1 = Format{
	Version:     1,
	Marker:      "Program:",
	Separator:   "─ ",
	MinTokens:   4,
	Excluded:    []string{"module", "self", "__"},
	IndentWidth: 3,
}

var _ Parser = FormatV1

// isAggregate reports whether line names a frame that must not be counted
// towards per-function totals.
func (f Format) isAggregate(line string) bool {
	for _, marker := range f.Excluded {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// Encode writes the header and call tree rooted at roots. Children are
// written in the order given.
func (f Format) Encode(w io.Writer, h Header, roots []*Node) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("profiletk report v%d\n", f.Version))
	sb.WriteString(fmt.Sprintf("Samples: %d  Duration: %.3f  CPU time: %.3f\n\n", h.Samples, h.Duration, h.CPUTime))
	sb.WriteString(fmt.Sprintf("%s %s\n\n", f.Marker, h.Program))

	for _, root := range roots {
		sb.WriteString(f.entryText(root))
		sb.WriteString("\n")
		f.encodeChildren(&sb, root, "")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f Format) encodeChildren(sb *strings.Builder, n *Node, prefix string) {
	pad := strings.Repeat(" ", f.IndentWidth-1)
	for i, child := range n.Children {
		last := i == len(n.Children)-1
		branch, cont := "├", "│"+pad
		if last {
			branch, cont = "└", " "+pad
		}
		sb.WriteString(prefix)
		sb.WriteString(branch)
		sb.WriteString(f.Separator)
		sb.WriteString(f.entryText(child))
		sb.WriteString("\n")
		f.encodeChildren(sb, child, prefix+cont)
	}
}

func (f Format) entryText(n *Node) string {
	if n.Location == "" {
		return fmt.Sprintf("%.3f %s", n.Time, n.Name)
	}
	return fmt.Sprintf("%.3f %s  %s", n.Time, n.Name, n.Location)
}
