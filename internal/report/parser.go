package report

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"profiletk/internal/timing"
)

// maxLineSize bounds a single report line; deep call trees with long symbol
// names exceed bufio's default.
const maxLineSize = 1 << 20

// ReadFile reads a report from disk.
func ReadFile(path string) (Raw, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Caller chooses the report path.
	if err != nil {
		return "", fmt.Errorf("failed to read report: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrMalformedReport, path)
	}
	return Raw(data), nil
}

func newScanner(raw Raw) *bufio.Scanner {
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// ParseTimings converts raw into a timing row for runID. Lines before the
// marker line are header. After it, every line that is not an aggregate frame
// and has at least MinTokens tokens contributes its time to the function
// named by the second token after the separator. Times for the same name are
// summed. A report without a marker yields an empty row.
func (f Format) ParseTimings(runID string, raw Raw) (timing.Row, error) {
	row := timing.NewRow(runID)
	started := false
	lineNo := 0

	scanner := newScanner(raw)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if started && !f.isAggregate(line) && len(strings.Fields(line)) >= f.MinTokens {
			name, t, err := f.measure(line, lineNo)
			if err != nil {
				return timing.Row{}, err
			}
			row.Add(name, t)
		}

		if strings.Contains(line, f.Marker) {
			started = true
		}
	}
	if err := scanner.Err(); err != nil {
		return timing.Row{}, fmt.Errorf("failed to scan report: %w", err)
	}

	return row, nil
}

// measure extracts the function name and time of a data line.
func (f Format) measure(line string, lineNo int) (string, float64, error) {
	_, rest, ok := strings.Cut(line, f.Separator)
	if !ok {
		return "", 0, fmt.Errorf("%w: line %d: missing separator %q: %q", ErrMalformedReport, lineNo, f.Separator, line)
	}
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("%w: line %d: expected time and name after separator: %q", ErrMalformedReport, lineNo, line)
	}
	t, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: line %d: invalid time %q: %w", ErrMalformedReport, lineNo, fields[0], err)
	}
	return fields[1], t, nil
}

// Entries returns every separator-marked line of raw, header included, with
// its call tree depth. Aggregate frames are returned and flagged rather than
// dropped.
func (f Format) Entries(raw Raw) ([]Entry, error) {
	var entries []Entry
	lineNo := 0

	scanner := newScanner(raw)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		before, rest, ok := strings.Cut(line, f.Separator)
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: line %d: no time after separator: %q", ErrMalformedReport, lineNo, line)
		}
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid time %q: %w", ErrMalformedReport, lineNo, fields[0], err)
		}

		entries = append(entries, Entry{
			Label:     rest,
			Depth:     (utf8.RuneCountInString(before) - 1) / f.IndentWidth,
			Time:      t,
			Aggregate: f.isAggregate(line),
			Line:      lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	return entries, nil
}

// Validate fails fast when raw does not look like a report in this format:
// the marker must be present, every data line must parse, and there must be
// at least one entry.
func (f Format) Validate(raw Raw) error {
	if !strings.Contains(string(raw), f.Marker) {
		return fmt.Errorf("%w (format v%d expects a %q line)", ErrNoProgramMarker, f.Version, f.Marker)
	}
	if _, err := f.ParseTimings("", raw); err != nil {
		return err
	}
	entries, err := f.Entries(raw)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no %q separated entries (format v%d)", ErrMalformedReport, f.Separator, f.Version)
	}
	return nil
}
