package analyzer

import (
	"fmt"
	"sort"
	"strconv"

	"profiletk/internal/report"
)

// Order selects the sort key of a hotspot ranking.
type Order string

const (
	// OrderByTime ranks entries by their parsed time, descending. Ties keep
	// report order.
	OrderByTime Order = "time"
	// OrderByLabel ranks entries by their label text, descending. Labels
	// start with the time rendered as text, so this matches OrderByTime
	// only while every time has the same number of integer digits.
	OrderByLabel Order = "label"
)

// depthSuffix is appended to every ranked label.
const depthSuffix = " call tree depth: "

// RankOptions controls RankHotspots.
type RankOptions struct {
	Order Order
	// ExcludeAggregate drops the frames the timing parser skips
	// (module, self and double-underscore frames).
	ExcludeAggregate bool
}

// RankedEntry is one position of a hotspot ranking.
type RankedEntry struct {
	Rank  int
	Label string // entry text plus its call tree depth annotation
	Depth int
	Time  float64
}

// String returns the printable "#rank: label" form.
func (e RankedEntry) String() string {
	return FormatRanked(e)
}

// RankHotspots orders individual call tree positions by time and returns
// the first n. Entries whose annotated label is identical overwrite each
// other instead of being summed: a ranking is about positions in the tree,
// not per-function totals. Asking for more entries than exist returns all
// of them; n <= 0 returns none.
func RankHotspots(entries []report.Entry, n int, opts RankOptions) []RankedEntry {
	byLabel := make(map[string]int)
	ranked := make([]RankedEntry, 0, len(entries))

	for _, e := range entries {
		if opts.ExcludeAggregate && e.Aggregate {
			continue
		}
		label := e.Label + depthSuffix + strconv.Itoa(e.Depth)
		if idx, ok := byLabel[label]; ok {
			ranked[idx].Time = e.Time
			continue
		}
		byLabel[label] = len(ranked)
		ranked = append(ranked, RankedEntry{
			Label: label,
			Depth: e.Depth,
			Time:  e.Time,
		})
	}

	switch opts.Order {
	case OrderByLabel:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Label > ranked[j].Label
		})
	default:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Time > ranked[j].Time
		})
	}

	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// FormatRanked returns the printable form of a ranked entry.
func FormatRanked(e RankedEntry) string {
	return fmt.Sprintf("#%d: %s", e.Rank, e.Label)
}

// FormatRankedList renders every entry with FormatRanked.
func FormatRankedList(entries []RankedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = FormatRanked(e)
	}
	return out
}

// ParseOrder converts a configuration value into an Order.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderByTime, "":
		return OrderByTime, nil
	case OrderByLabel:
		return OrderByLabel, nil
	default:
		return "", fmt.Errorf("unknown hotspot order %q (want %q or %q)", s, OrderByTime, OrderByLabel)
	}
}
