// Package timing holds per-run function timings and the table that
// accumulates them across runs.
package timing

// Row is the per-function elapsed time of one profiled run, keyed by the
// run identifier the caller chose.
type Row struct {
	RunID string
	names []string
	times map[string]float64
}

// NewRow creates an empty row for runID.
func NewRow(runID string) Row {
	return Row{
		RunID: runID,
		times: make(map[string]float64),
	}
}

// Add accumulates t into the entry for name. A name seen more than once in
// the same run is summed.
func (r *Row) Add(name string, t float64) {
	if r.times == nil {
		r.times = make(map[string]float64)
	}
	if _, ok := r.times[name]; !ok {
		r.names = append(r.names, name)
	}
	r.times[name] += t
}

// Names returns function names in the order they were first added.
func (r Row) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Time returns the accumulated time for name and whether it is present.
func (r Row) Time(name string) (float64, bool) {
	t, ok := r.times[name]
	return t, ok
}

// Len returns the number of distinct functions in the row.
func (r Row) Len() int {
	return len(r.names)
}

// Total returns the sum of every entry in the row.
func (r Row) Total() float64 {
	var sum float64
	for _, name := range r.names {
		sum += r.times[name]
	}
	return sum
}

// Equal reports whether two rows carry the same run identifier and the same
// entries in the same order.
func (r Row) Equal(other Row) bool {
	if r.RunID != other.RunID || len(r.names) != len(other.names) {
		return false
	}
	for i, name := range r.names {
		if other.names[i] != name || other.times[name] != r.times[name] {
			return false
		}
	}
	return true
}

func (r Row) clone() Row {
	c := Row{
		RunID: r.RunID,
		names: make([]string, len(r.names)),
		times: make(map[string]float64, len(r.times)),
	}
	copy(c.names, r.names)
	for k, v := range r.times {
		c.times[k] = v
	}
	return c
}
