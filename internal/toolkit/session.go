// Package toolkit provides Session, the single entry point for profiling
// functions and comparing the results across runs.
//
// A Session records each profiled invocation under a caller-chosen run
// identifier: it keeps the sampler's raw report for later hotspot ranking
// and folds the per-function timings into one table with a row per run.
// It also passes functions through to the line-level timer, the memory
// engines and the call graph renderer, which print their own output.
package toolkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/pprof"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"profiletk/internal/analyzer"
	"profiletk/internal/report"
	"profiletk/internal/sampler"
	"profiletk/internal/source"
	"profiletk/internal/timing"
)

// Session errors.
var (
	// ErrUnknownRun indicates a run identifier that was never recorded.
	ErrUnknownRun = errors.New("unknown run")

	// ErrDuplicateRun indicates a run identifier that is already recorded
	// while the session rejects collisions.
	ErrDuplicateRun = errors.New("run already recorded")
)

// Target is a function to profile. Its error is returned to the caller
// unchanged.
type Target func() error

// Session owns a sampler and accumulates the runs recorded with it. A
// Session may be shared between goroutines. Profiling calls queue behind
// each other, while the read accessors stay available to a running target.
type Session struct {
	id     string
	opts   Options
	logger zerolog.Logger
	src    *source.Cache

	// run is held for the whole of one profiled invocation.
	run sync.Mutex

	mu      sync.Mutex
	reports map[string]report.Raw
	runs    []string
	table   *timing.Table
}

// New creates an empty session.
func New(opts Options) *Session {
	opts = opts.withDefaults()
	id := uuid.NewString()
	return &Session{
		id:      id,
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "session").Str("session_id", id).Logger(),
		src:     source.NewCache(),
		reports: make(map[string]report.Raw),
		table:   timing.NewTable(),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Record profiles one invocation of target and stores it under runID. It
// returns the identifier the run was stored under, which differs from runID
// only with CollisionVersion.
//
// If target fails or panics, nothing is recorded and the error or panic
// reaches the caller unchanged. The sampler is disarmed on every path.
//
// target may call the other methods of s, but not Record or the engines,
// which wait for the running target to return.
func (s *Session) Record(ctx context.Context, runID string, target Target) (string, error) {
	s.run.Lock()
	defer s.run.Unlock()

	s.mu.Lock()
	id, err := s.resolveID(runID)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	raw, runErr, err := s.sample(ctx, id, target)
	if runErr != nil {
		if err != nil {
			s.logger.Warn().Err(err).Str("run_id", id).Msg("Failed to stop sampler after target error")
		}
		s.logger.Debug().Err(runErr).Str("run_id", id).Msg("Target failed, run discarded")
		return "", runErr
	}
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Ingest may have claimed id while the target ran.
	if _, taken := s.reports[id]; taken && s.opts.Collisions != CollisionOverwrite {
		if id, err = s.resolveID(runID); err != nil {
			return "", err
		}
	}

	if err := s.store(id, raw); err != nil {
		return "", err
	}
	return id, nil
}

// sample runs target between arming and disarming the sampler. The target
// runs under the sampler.RunLabel pprof label.
func (s *Session) sample(ctx context.Context, id string, target Target) (raw report.Raw, runErr, err error) {
	if err := s.opts.Sampler.Start(); err != nil {
		return "", nil, fmt.Errorf("failed to start sampler: %w", err)
	}

	armed := true
	defer func() {
		if armed {
			if _, stopErr := s.opts.Sampler.Stop(); stopErr != nil {
				s.logger.Warn().Err(stopErr).Str("run_id", id).Msg("Failed to stop sampler after panic")
			}
		}
	}()

	pprof.Do(ctx, pprof.Labels(sampler.RunLabel, id), func(context.Context) {
		runErr = target()
	})

	armed = false
	raw, err = s.opts.Sampler.Stop()
	if err != nil {
		return "", runErr, fmt.Errorf("failed to stop sampler: %w", err)
	}
	return raw, runErr, nil
}

// Ingest stores and accumulates a report produced elsewhere, as if it had
// been recorded under runID. Reports are validated first when the parser
// supports it.
func (s *Session) Ingest(runID string, raw report.Raw) (string, error) {
	if v, ok := s.opts.Parser.(interface{ Validate(report.Raw) error }); ok {
		if err := v.Validate(raw); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.resolveID(runID)
	if err != nil {
		return "", err
	}
	if err := s.store(id, raw); err != nil {
		return "", err
	}
	return id, nil
}

// resolveID applies the collision policy. s.mu must be held.
func (s *Session) resolveID(runID string) (string, error) {
	if _, exists := s.reports[runID]; !exists {
		return runID, nil
	}

	switch s.opts.Collisions {
	case CollisionReject:
		return "", fmt.Errorf("%w: %q", ErrDuplicateRun, runID)
	case CollisionVersion:
		for n := 2; ; n++ {
			id := runID + "#" + strconv.Itoa(n)
			if _, exists := s.reports[id]; !exists {
				return id, nil
			}
		}
	default:
		s.logger.Warn().Str("run_id", runID).Msg("Run identifier recorded again, overwriting report")
		return runID, nil
	}
}

// store keeps raw under id, then parses it and appends its row. The raw
// report is kept even when parsing fails. s.mu must be held.
func (s *Session) store(id string, raw report.Raw) error {
	if _, exists := s.reports[id]; !exists {
		s.runs = append(s.runs, id)
	}
	s.reports[id] = raw

	row, err := s.opts.Parser.ParseTimings(id, raw)
	if err != nil {
		return fmt.Errorf("failed to parse report for run %q: %w", id, err)
	}
	s.table.Append(row)

	s.logger.Debug().
		Str("run_id", id).
		Int("functions", row.Len()).
		Int("rows", s.table.Len()).
		Msg("Recorded run")
	return nil
}

// Hotspots ranks the call tree positions of a stored report by time and
// returns the first n.
func (s *Session) Hotspots(runID string, n int) ([]analyzer.RankedEntry, error) {
	s.mu.Lock()
	raw, ok := s.reports[runID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRun, runID)
	}

	entries, err := s.opts.Parser.Entries(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read report for run %q: %w", runID, err)
	}
	return analyzer.RankHotspots(entries, n, s.opts.Hotspots), nil
}

// RankedHotspots returns the printable "#rank: label" lines of Hotspots.
func (s *Session) RankedHotspots(runID string, n int) ([]string, error) {
	ranked, err := s.Hotspots(runID, n)
	if err != nil {
		return nil, err
	}
	return analyzer.FormatRankedList(ranked), nil
}

// PrintHotspots writes RankedHotspots to w, one per line.
func (s *Session) PrintHotspots(w io.Writer, runID string, n int) error {
	lines, err := s.RankedHotspots(runID, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// TimingTable returns a copy of the accumulated timing table.
func (s *Session) TimingTable() *timing.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Clone()
}

// Report returns the raw report stored under runID.
func (s *Session) Report(runID string) (report.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.reports[runID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRun, runID)
	}
	return raw, nil
}

// Runs returns the stored run identifiers in the order they were first
// recorded.
func (s *Session) Runs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.runs))
	copy(out, s.runs)
	return out
}
