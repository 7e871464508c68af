// Package report defines the text report a sampling profiler produces for a
// single invocation and the parsers that turn it into per-function timings
// and call-tree entries.
package report

import (
	"errors"

	"profiletk/internal/timing"
)

// Raw is the verbatim text report captured for one profiled invocation.
type Raw string

// Report errors.
var (
	// ErrMalformedReport indicates a data line that does not follow the
	// report format.
	ErrMalformedReport = errors.New("malformed report")

	// ErrNoProgramMarker indicates a report without the marker line that
	// opens the data section.
	ErrNoProgramMarker = errors.New("report has no program marker")
)

// Entry is one separator-marked line of a report, positioned in the call tree.
type Entry struct {
	Label     string  // text after the first separator
	Depth     int     // call tree nesting, zero for children of a root frame
	Time      float64 // first token of Label, in the report's unit
	Aggregate bool    // true when the timing parser would skip the line
	Line      int     // 1-based line number in the report
}

// Parser turns a raw report into timings and call-tree entries. Sessions
// depend on this interface so that a change in the upstream layout only
// touches its implementation.
type Parser interface {
	ParseTimings(runID string, raw Raw) (timing.Row, error)
	Entries(raw Raw) ([]Entry, error)
}

// Node is a frame of a call tree to be encoded as a report.
type Node struct {
	Time     float64
	Name     string
	Location string
	Children []*Node
}

// Header carries the metadata printed above the data section.
type Header struct {
	Program  string
	Samples  int
	Duration float64
	CPUTime  float64
}
