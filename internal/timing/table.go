package timing

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// KeyColumn is the header used for the run identifier column when the table
// is rendered.
const KeyColumn = "key"

// OutputFormat selects how a table is rendered.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
)

// Table is an append-only sequence of rows. Its column set is the union of
// every function name seen in any row, in order of first appearance. A cell
// for a function a run never reported reads as zero.
type Table struct {
	columns []string
	known   map[string]struct{}
	rows    []Row
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{known: make(map[string]struct{})}
}

// Append adds row after every existing row. Prior rows are never touched;
// columns the new row introduces read as zero for them.
func (t *Table) Append(row Row) {
	if t.known == nil {
		t.known = make(map[string]struct{})
	}
	for _, name := range row.names {
		if _, ok := t.known[name]; ok {
			continue
		}
		t.known[name] = struct{}{}
		t.columns = append(t.columns, name)
	}
	t.rows = append(t.rows, row.clone())
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns the function columns in order of first appearance. The run
// identifier column is not included.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether any row has ever reported name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.known[name]
	return ok
}

// RunIDs returns the run identifier of every row, in append order.
func (t *Table) RunIDs() []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.RunID
	}
	return out
}

// Row returns a copy of the i-th row.
func (t *Table) Row(i int) Row {
	return t.rows[i].clone()
}

// Cell returns the value of column name in the i-th row, or zero when that
// run did not report the function.
func (t *Table) Cell(i int, name string) float64 {
	v, _ := t.rows[i].Time(name)
	return v
}

// Lookup returns the index of the most recent row recorded under runID.
func (t *Table) Lookup(runID string) (int, bool) {
	for i := len(t.rows) - 1; i >= 0; i-- {
		if t.rows[i].RunID == runID {
			return i, true
		}
	}
	return -1, false
}

// Column returns the values of name for every row, zero-filled.
func (t *Table) Column(name string) []float64 {
	out := make([]float64, len(t.rows))
	for i := range t.rows {
		out[i] = t.Cell(i, name)
	}
	return out
}

// Dense returns every row expanded to the full column set.
func (t *Table) Dense() [][]float64 {
	out := make([][]float64, len(t.rows))
	for i := range t.rows {
		vals := make([]float64, len(t.columns))
		for j, c := range t.columns {
			vals[j] = t.Cell(i, c)
		}
		out[i] = vals
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable()
	for _, r := range t.rows {
		c.Append(r)
	}
	return c
}

// Format renders the table to w.
func (t *Table) Format(w io.Writer, format OutputFormat) error {
	switch format {
	case FormatTable, "":
		return t.writeTable(w)
	case FormatJSON:
		return t.writeJSON(w)
	case FormatCSV:
		return t.writeCSV(w)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func (t *Table) header() []string {
	return append([]string{KeyColumn}, t.columns...)
}

func (t *Table) record(i int) []string {
	rec := make([]string, 0, len(t.columns)+1)
	rec = append(rec, t.rows[i].RunID)
	for _, c := range t.columns {
		rec = append(rec, strconv.FormatFloat(t.Cell(i, c), 'f', -1, 64))
	}
	return rec
}

func (t *Table) writeTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(t.header(), "\t")); err != nil {
		return err
	}
	for i := range t.rows {
		if _, err := fmt.Fprintln(tw, strings.Join(t.record(i), "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (t *Table) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header()); err != nil {
		return err
	}
	for i := range t.rows {
		if err := cw.Write(t.record(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonTable struct {
	Columns []string  `json:"columns"`
	Rows    []jsonRow `json:"rows"`
}

type jsonRow struct {
	Key    string    `json:"key"`
	Values []float64 `json:"values"`
}

func (t *Table) writeJSON(w io.Writer) error {
	out := jsonTable{Columns: t.Columns(), Rows: make([]jsonRow, 0, len(t.rows))}
	dense := t.Dense()
	for i, r := range t.rows {
		out.Rows = append(out.Rows, jsonRow{Key: r.RunID, Values: dense[i]})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
