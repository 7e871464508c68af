package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"profiletk/internal/sampler"
	"profiletk/internal/toolkit"
)

// runArg is one RUN=FILE command line argument.
type runArg struct {
	runID string
	path  string
}

// parseRunArg accepts RUN=FILE, or a bare FILE recorded under its base name
// without extension.
func parseRunArg(arg string) (runArg, error) {
	runID, path, ok := strings.Cut(arg, "=")
	if !ok {
		path = arg
		runID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if runID == "" || path == "" {
		return runArg{}, fmt.Errorf("invalid run argument %q (want RUN=FILE)", arg)
	}
	return runArg{runID: runID, path: path}, nil
}

// ingestRuns loads every report named by args into session, in order, and
// returns the identifiers they were stored under.
func ingestRuns(session *toolkit.Session, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		ra, err := parseRunArg(arg)
		if err != nil {
			return nil, err
		}
		raw, err := sampler.LoadFile(ra.path)
		if err != nil {
			return nil, err
		}
		id, err := session.Ingest(ra.runID, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ra.path, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
