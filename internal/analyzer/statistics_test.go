package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profiletk/internal/timing"
)

func newTable(rows ...timing.Row) *timing.Table {
	tbl := timing.NewTable()
	for _, r := range rows {
		tbl.Append(r)
	}
	return tbl
}

func mkRow(runID string, kv map[string]float64, order ...string) timing.Row {
	r := timing.NewRow(runID)
	for _, name := range order {
		r.Add(name, kv[name])
	}
	return r
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(timing.NewTable())
	assert.Equal(t, 0, stats.TotalRuns)
	assert.Empty(t, stats.Functions)
}

func TestComputeStatistics(t *testing.T) {
	tbl := newTable(
		mkRow("baseline", map[string]float64{"foo": 100, "bar": 50}, "foo", "bar"),
		mkRow("optimized", map[string]float64{"foo": 40}, "foo"),
	)

	stats := ComputeStatistics(tbl)
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 2, stats.TotalFunctions)
	assert.Equal(t, "baseline", stats.HeaviestRun)
	assert.Equal(t, 150.0, stats.HeaviestRunTime)
	assert.Equal(t, "optimized", stats.LightestRun)
	assert.Equal(t, 40.0, stats.LightestRunTime)

	require.Len(t, stats.Functions, 2)
	foo := stats.Functions[0]
	assert.Equal(t, "foo", foo.Function)
	assert.Equal(t, 2, foo.Reported)
	assert.Equal(t, 140.0, foo.Total)
	assert.Equal(t, 70.0, foo.Mean)
	assert.Equal(t, 40.0, foo.Min)
	assert.Equal(t, 100.0, foo.Max)
	assert.InDelta(t, 30.0, foo.StdDev, 1e-9)

	bar := stats.Functions[1]
	assert.Equal(t, 1, bar.Reported)
	assert.Equal(t, 0.0, bar.Min)
	assert.Equal(t, 25.0, bar.Mean)
}

func TestCompareRuns(t *testing.T) {
	tbl := newTable(
		mkRow("baseline", map[string]float64{"foo": 100, "bar": 50}, "foo", "bar"),
		mkRow("optimized", map[string]float64{"foo": 40, "baz": 5}, "foo", "baz"),
	)

	deltas, err := CompareRuns(tbl, "baseline", "optimized")
	require.NoError(t, err)
	require.Len(t, deltas, 3)

	assert.Equal(t, "foo", deltas[0].Function)
	assert.Equal(t, -60.0, deltas[0].Delta)
	assert.Equal(t, -60.0, deltas[0].Percent)

	assert.Equal(t, "bar", deltas[1].Function)
	assert.True(t, deltas[1].Gone)

	assert.Equal(t, "baz", deltas[2].Function)
	assert.True(t, deltas[2].New)
	assert.Equal(t, 0.0, deltas[2].Percent)

	assert.Equal(t, "foo: 100.000 -> 40.000 (-60.000, -60.00%)", FormatDelta(deltas[0]))
	assert.Equal(t, "bar: gone, was 50.000", FormatDelta(deltas[1]))
	assert.Equal(t, "baz: new, 5.000", FormatDelta(deltas[2]))

	_, err = CompareRuns(tbl, "missing", "optimized")
	assert.Error(t, err)
	_, err = CompareRuns(tbl, "baseline", "missing")
	assert.Error(t, err)
}

func TestDetectRegressions(t *testing.T) {
	tbl := newTable(
		mkRow("before", map[string]float64{"foo": 10, "bar": 10, "qux": 10}, "foo", "bar", "qux"),
		mkRow("after", map[string]float64{"foo": 20, "bar": 11, "qux": 13, "new": 10}, "foo", "bar", "qux", "new"),
	)
	deltas, err := CompareRuns(tbl, "before", "after")
	require.NoError(t, err)

	issues := DetectRegressions(deltas, 15)
	require.Len(t, issues, 3)

	assert.Equal(t, "foo", issues[0].Function)
	assert.Equal(t, "Critical", issues[0].Severity)
	assert.Equal(t, "Slowdown", issues[0].Category)

	assert.Equal(t, "qux", issues[1].Function)
	assert.Equal(t, "High", issues[1].Severity)

	assert.Equal(t, "new", issues[2].Function)
	assert.Equal(t, "New Function", issues[2].Category)
	assert.Equal(t, "Medium", issues[2].Severity)
}

func TestDetectRegressionsFromZeroBase(t *testing.T) {
	tbl := newTable(
		mkRow("before", map[string]float64{"idle": 0, "work": 10}, "idle", "work"),
		mkRow("after", map[string]float64{"idle": 30, "work": 10}, "idle", "work"),
	)
	deltas, err := CompareRuns(tbl, "before", "after")
	require.NoError(t, err)

	issues := DetectRegressions(deltas, 10)
	require.Len(t, issues, 1)
	assert.Equal(t, "idle", issues[0].Function)
	assert.Equal(t, "Slowdown", issues[0].Category)
	assert.Equal(t, "Critical", issues[0].Severity)
	assert.Equal(t, 75.0, issues[0].Impact)
	assert.Contains(t, issues[0].Description, "from zero to 30.000")

	assert.Empty(t, DetectRegressions(deltas, 80))
}
