package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"profiletk/internal/analyzer"
	"profiletk/internal/report"
	"profiletk/internal/sampler"
	"profiletk/internal/timing"
	"profiletk/internal/toolkit"
)

const rule = "═══════════════════════════════════════════════════\n"

// tools holds the state shared by every tool handler.
type tools struct {
	session  *toolkit.Session
	hotspots int
	logger   zerolog.Logger
}

func registerTools(s *server.MCPServer, t *tools) {
	// Tool 1: Load Report
	s.AddTool(mcp.NewTool("load_report",
		mcp.WithDescription("Load a profiletk text report, or a pprof CPU profile, from disk and record it as a run of the session timing table"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the report file"),
		),
		mcp.WithString("run_id",
			mcp.Description("Run identifier to record the report under (default: file name without extension)"),
		),
	), t.loadReport)

	// Tool 2: Validate Report
	s.AddTool(mcp.NewTool("validate_report",
		mcp.WithDescription("Check that a report file follows the profiletk report format without recording it"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the report file"),
		),
	), t.validateReport)

	// Tool 3: Ranked Hotspots
	s.AddTool(mcp.NewTool("ranked_hotspots",
		mcp.WithDescription("Rank the call tree positions of a recorded run by time, with their call tree depth. This is the main tool for finding where a run spent its time."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Identifier of a recorded run"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of hotspots to return (default from configuration)"),
		),
	), t.rankedHotspots)

	// Tool 4: Timing Table
	s.AddTool(mcp.NewTool("timing_table",
		mcp.WithDescription("Show the accumulated per-function timing table, one row per recorded run"),
		mcp.WithString("format",
			mcp.Description("Output format: table, csv or json (default: table)"),
		),
	), t.timingTable)

	// Tool 5: List Runs
	s.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the run identifiers recorded in this session"),
	), t.listRuns)

	// Tool 6: Table Statistics
	s.AddTool(mcp.NewTool("table_statistics",
		mcp.WithDescription("Summarize every function across all recorded runs: mean, min, max and spread of its time"),
	), t.tableStatistics)

	// Tool 7: Compare Runs
	s.AddTool(mcp.NewTool("compare_runs",
		mcp.WithDescription("Compare two recorded runs function by function and flag regressions"),
		mcp.WithString("base",
			mcp.Required(),
			mcp.Description("Identifier of the reference run"),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Identifier of the run to check"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum growth in percent to flag as a regression (default: 10)"),
		),
	), t.compareRuns)
}

func (t *tools) loadReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	runID := request.GetString("run_id", "")
	if runID == "" {
		runID = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	raw, err := sampler.LoadFile(filePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load report: %v", err)), nil
	}

	id, err := t.session.Ingest(runID, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record report: %v", err)), nil
	}

	table := t.session.TimingTable()
	i, _ := table.Lookup(id)
	t.logger.Debug().Str("file", filePath).Str("run_id", id).Msg("Loaded report")

	result := fmt.Sprintf(`Report loaded successfully!

File: %s
Run: %s
Functions: %d
Runs in session: %d

Use ranked_hotspots, timing_table or compare_runs to analyze it.
`,
		filePath,
		id,
		table.Row(i).Len(),
		len(t.session.Runs()),
	)

	return mcp.NewToolResultText(result), nil
}

func (t *tools) validateReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := sampler.LoadFile(filePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load report: %v", err)), nil
	}
	if err := report.FormatV1.Validate(raw); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid report: %v", err)), nil
	}

	entries, err := report.FormatV1.Entries(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid report: %v", err)), nil
	}
	row, err := report.FormatV1.ParseTimings("", raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid report: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Report is valid (format v%d)\n\nCall tree entries: %d\nFunctions: %d\n",
		report.FormatV1.Version, len(entries), row.Len())), nil
}

func (t *tools) rankedHotspots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topN := int(request.GetFloat("top_n", float64(t.hotspots)))

	lines, err := t.session.RankedHotspots(runID, topN)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔥 HOTSPOTS OF RUN %q\n", runID))
	sb.WriteString(rule + "\n")

	if len(lines) == 0 {
		sb.WriteString("No hotspots found.\n")
	} else {
		for _, line := range lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (t *tools) timingTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := timing.OutputFormat(request.GetString("format", string(timing.FormatTable)))

	table := t.session.TimingTable()
	if table.Len() == 0 {
		return mcp.NewToolResultText("No runs recorded yet. Use load_report first.\n"), nil
	}

	var sb strings.Builder
	if err := table.Format(&sb, format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *tools) listRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs := t.session.Runs()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 RECORDED RUNS (%d)\n", len(runs)))
	sb.WriteString(rule + "\n")
	for i, id := range runs {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, id))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (t *tools) tableStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := analyzer.ComputeStatistics(t.session.TimingTable())

	var sb strings.Builder
	sb.WriteString("📊 TIMING TABLE STATISTICS\n")
	sb.WriteString(rule + "\n")

	if stats.TotalRuns == 0 {
		sb.WriteString("No runs recorded yet.\n")
		return mcp.NewToolResultText(sb.String()), nil
	}

	sb.WriteString(fmt.Sprintf("Total Runs: %d\n", stats.TotalRuns))
	sb.WriteString(fmt.Sprintf("Total Functions: %d\n", stats.TotalFunctions))
	sb.WriteString(fmt.Sprintf("Heaviest Run: %s (%.3f)\n", stats.HeaviestRun, stats.HeaviestRunTime))
	sb.WriteString(fmt.Sprintf("Lightest Run: %s (%.3f)\n\n", stats.LightestRun, stats.LightestRunTime))

	sb.WriteString("Per Function:\n\n")
	for i, fs := range stats.Functions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, fs.Function))
		sb.WriteString(fmt.Sprintf("   Reported in %d of %d runs\n", fs.Reported, stats.TotalRuns))
		sb.WriteString(fmt.Sprintf("   Mean: %.3f  Min: %.3f  Max: %.3f  StdDev: %.3f\n\n", fs.Mean, fs.Min, fs.Max, fs.StdDev))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (t *tools) compareRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, err := request.RequireString("base")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := request.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	threshold := request.GetFloat("threshold", 10.0)

	deltas, err := analyzer.CompareRuns(t.session.TimingTable(), base, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issues := analyzer.DetectRegressions(deltas, threshold)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 %s → %s\n", base, target))
	sb.WriteString(rule + "\n")

	for _, d := range deltas {
		sb.WriteString(analyzer.FormatDelta(d))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(issues) == 0 {
		sb.WriteString(fmt.Sprintf("✅ No regressions above %.1f%%.\n", threshold))
		return mcp.NewToolResultText(sb.String()), nil
	}

	var critical, high, medium []analyzer.Regression
	for _, issue := range issues {
		switch issue.Severity {
		case "Critical":
			critical = append(critical, issue)
		case "High":
			high = append(high, issue)
		default:
			medium = append(medium, issue)
		}
	}

	writeGroup := func(title string, group []analyzer.Regression) {
		if len(group) == 0 {
			return
		}
		sb.WriteString(title + "\n\n")
		for i, issue := range group {
			sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, issue.Category, issue.Description))
			sb.WriteString(fmt.Sprintf("   Function: %s\n", issue.Function))
			sb.WriteString(fmt.Sprintf("   Impact: %.2f%%\n\n", issue.Impact))
		}
	}
	writeGroup("🔴 CRITICAL REGRESSIONS:", critical)
	writeGroup("🟠 HIGH PRIORITY REGRESSIONS:", high)
	writeGroup("🟡 MEDIUM PRIORITY REGRESSIONS:", medium)

	sb.WriteString("📊 SUMMARY:\n")
	sb.WriteString(fmt.Sprintf("   Critical: %d\n", len(critical)))
	sb.WriteString(fmt.Sprintf("   High: %d\n", len(high)))
	sb.WriteString(fmt.Sprintf("   Medium: %d\n", len(medium)))

	return mcp.NewToolResultText(sb.String()), nil
}
