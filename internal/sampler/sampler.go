// Package sampler provides call-stack sampling engines that capture one
// invocation and hand back a text report.
//
// The production engine, [Pprof], arms the Go runtime CPU profiler, parses
// the resulting profile with github.com/google/pprof/profile and renders a
// call tree in [report.FormatV1]. [Static] replays canned reports and is
// used where deterministic output matters.
package sampler

import (
	"errors"
	"sync"

	"profiletk/internal/report"
)

// RunLabel is the pprof label key a session attaches to the goroutine
// running a profiled target. Its value is the run identifier.
const RunLabel = "profiletk_run"

// Sampler errors.
var (
	// ErrSamplerActive indicates Start was called on an armed sampler.
	ErrSamplerActive = errors.New("sampler already active")

	// ErrSamplerIdle indicates Stop was called on a sampler that is not armed.
	ErrSamplerIdle = errors.New("sampler not active")

	// ErrNoReport indicates a Static sampler ran out of reports.
	ErrNoReport = errors.New("no report left to replay")
)

// Sampler arms and disarms a sampling profiler. Stop returns the full text
// report of everything sampled since Start.
type Sampler interface {
	Start() error
	Stop() (report.Raw, error)
}

// Static replays a fixed sequence of reports, one per Start/Stop cycle.
type Static struct {
	mu      sync.Mutex
	reports []report.Raw
	next    int
	active  bool
	starts  int
}

// NewStatic returns a sampler that yields reports in order.
func NewStatic(reports ...report.Raw) *Static {
	return &Static{reports: reports}
}

// Start implements Sampler.
func (s *Static) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return ErrSamplerActive
	}
	s.active = true
	s.starts++
	return nil
}

// Stop implements Sampler.
func (s *Static) Stop() (report.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return "", ErrSamplerIdle
	}
	s.active = false
	if s.next >= len(s.reports) {
		return "", ErrNoReport
	}
	r := s.reports[s.next]
	s.next++
	return r, nil
}

// Active reports whether the sampler is armed.
func (s *Static) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Starts returns how many times the sampler was armed.
func (s *Static) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}
