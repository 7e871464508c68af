package analyzer

import (
	"fmt"
	"math"
	"sort"

	"profiletk/internal/timing"
)

// FunctionStatistics summarises one column of a timing table. Runs that did
// not report the function count as zero towards Mean and Min.
type FunctionStatistics struct {
	Function string
	Reported int // runs that reported the function
	Total    float64
	Mean     float64
	Min      float64
	Max      float64
	StdDev   float64
}

// TableStatistics contains cross-run statistics for a timing table.
type TableStatistics struct {
	TotalRuns       int
	TotalFunctions  int
	HeaviestRun     string
	HeaviestRunTime float64
	LightestRun     string
	LightestRunTime float64
	Functions       []FunctionStatistics // sorted by Total, descending
}

// ComputeStatistics calculates per-function and per-run statistics.
func ComputeStatistics(table *timing.Table) TableStatistics {
	stats := TableStatistics{
		TotalRuns:      table.Len(),
		TotalFunctions: len(table.Columns()),
	}

	if stats.TotalRuns == 0 {
		return stats
	}

	stats.LightestRunTime = math.Inf(1)
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		total := row.Total()
		if total > stats.HeaviestRunTime || stats.HeaviestRun == "" {
			stats.HeaviestRun = row.RunID
			stats.HeaviestRunTime = total
		}
		if total < stats.LightestRunTime {
			stats.LightestRun = row.RunID
			stats.LightestRunTime = total
		}
	}

	for _, name := range table.Columns() {
		values := table.Column(name)
		fs := FunctionStatistics{
			Function: name,
			Min:      math.Inf(1),
			Max:      math.Inf(-1),
		}
		for i, v := range values {
			if _, ok := table.Row(i).Time(name); ok {
				fs.Reported++
			}
			fs.Total += v
			fs.Min = math.Min(fs.Min, v)
			fs.Max = math.Max(fs.Max, v)
		}
		fs.Mean = fs.Total / float64(len(values))

		var sq float64
		for _, v := range values {
			sq += (v - fs.Mean) * (v - fs.Mean)
		}
		fs.StdDev = math.Sqrt(sq / float64(len(values)))

		stats.Functions = append(stats.Functions, fs)
	}

	sort.SliceStable(stats.Functions, func(i, j int) bool {
		return stats.Functions[i].Total > stats.Functions[j].Total
	})

	return stats
}

// RunDelta is the change of one function between two runs.
type RunDelta struct {
	Function string
	Base     float64
	Target   float64
	Delta    float64 // Target - Base
	Percent  float64 // Delta relative to Base; zero when Base is zero
	New      bool    // reported by target only
	Gone     bool    // reported by base only
}

// CompareRuns returns per-function changes between the most recent rows
// recorded as base and target, largest absolute change first.
func CompareRuns(table *timing.Table, base, target string) ([]RunDelta, error) {
	bi, ok := table.Lookup(base)
	if !ok {
		return nil, fmt.Errorf("run %q not found in timing table", base)
	}
	ti, ok := table.Lookup(target)
	if !ok {
		return nil, fmt.Errorf("run %q not found in timing table", target)
	}
	baseRow, targetRow := table.Row(bi), table.Row(ti)

	deltas := make([]RunDelta, 0, len(table.Columns()))
	for _, name := range table.Columns() {
		b, inBase := baseRow.Time(name)
		t, inTarget := targetRow.Time(name)
		if !inBase && !inTarget {
			continue
		}
		d := RunDelta{
			Function: name,
			Base:     b,
			Target:   t,
			Delta:    t - b,
			New:      !inBase,
			Gone:     !inTarget,
		}
		if b != 0 {
			d.Percent = d.Delta / b * 100.0
		}
		deltas = append(deltas, d)
	}

	sort.SliceStable(deltas, func(i, j int) bool {
		return math.Abs(deltas[i].Delta) > math.Abs(deltas[j].Delta)
	})

	return deltas, nil
}

// Regression is a slowdown flagged by DetectRegressions.
type Regression struct {
	Severity    string // "Critical", "High", "Medium"
	Category    string // "Slowdown" or "New Function"
	Description string
	Function    string
	Impact      float64 // percent change, or share of target time for new functions
}

// DetectRegressions flags functions whose time grew by at least threshold
// percent, and functions that only appear in the target run. A function
// growing from zero is judged like a new one, by its share of the target.
func DetectRegressions(deltas []RunDelta, threshold float64) []Regression {
	var targetTotal float64
	for _, d := range deltas {
		targetTotal += d.Target
	}

	issues := []Regression{}
	for _, d := range deltas {
		switch {
		case (d.New || d.Base == 0) && d.Target > 0:
			// No base time to grow from; rank by share of the target run.
			share := 0.0
			if targetTotal > 0 {
				share = d.Target / targetTotal * 100.0
			}
			if share < threshold {
				continue
			}
			r := Regression{
				Severity:    severity(share),
				Category:    "New Function",
				Description: fmt.Sprintf("Function appears only in the target run and takes %.2f%% of its time", share),
				Function:    d.Function,
				Impact:      share,
			}
			if !d.New {
				r.Category = "Slowdown"
				r.Description = fmt.Sprintf("Time grew from zero to %.3f, %.2f%% of the target run", d.Target, share)
			}
			issues = append(issues, r)
		case d.Delta > 0 && d.Percent >= threshold:
			issues = append(issues, Regression{
				Severity:    severity(d.Percent),
				Category:    "Slowdown",
				Description: fmt.Sprintf("Time grew from %.3f to %.3f (+%.2f%%)", d.Base, d.Target, d.Percent),
				Function:    d.Function,
				Impact:      d.Percent,
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Impact > issues[j].Impact
	})

	return issues
}

func severity(pct float64) string {
	switch {
	case pct >= 50.0:
		return "Critical"
	case pct >= 25.0:
		return "High"
	default:
		return "Medium"
	}
}

// FormatDelta returns a one-line human-readable form of a run delta.
func FormatDelta(d RunDelta) string {
	switch {
	case d.New:
		return fmt.Sprintf("%s: new, %.3f", d.Function, d.Target)
	case d.Gone:
		return fmt.Sprintf("%s: gone, was %.3f", d.Function, d.Base)
	default:
		return fmt.Sprintf("%s: %.3f -> %.3f (%+.3f, %+.2f%%)", d.Function, d.Base, d.Target, d.Delta, d.Percent)
	}
}
