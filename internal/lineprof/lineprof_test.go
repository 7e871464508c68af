package lineprof

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profiletk/internal/source"
)

const demoSource = `package main

func main() {
	foo()
	bar()
	spin()
}
`

// demoProfile: main.main (line 3) calls foo on line 4 (100ms, 10 samples),
// bar on line 5 (50ms, 5 samples) and burns 10ms itself on line 6.
func demoProfile(file string) *profile.Profile {
	mainFn := &profile.Function{ID: 1, Name: "main.main", Filename: file, StartLine: 3}
	fooFn := &profile.Function{ID: 2, Name: "main.foo", Filename: file, StartLine: 20}
	barFn := &profile.Function{ID: 3, Name: "main.bar", Filename: file, StartLine: 30}

	callFoo := &profile.Location{ID: 1, Line: []profile.Line{{Function: mainFn, Line: 4}}}
	callBar := &profile.Location{ID: 2, Line: []profile.Line{{Function: mainFn, Line: 5}}}
	selfLoc := &profile.Location{ID: 3, Line: []profile.Line{{Function: mainFn, Line: 6}}}
	fooLoc := &profile.Location{ID: 4, Line: []profile.Line{{Function: fooFn, Line: 22}}}
	barLoc := &profile.Location{ID: 5, Line: []profile.Line{{Function: barFn, Line: 31}}}

	return &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{fooLoc, callFoo}, Value: []int64{10, 100e6}},
			{Location: []*profile.Location{barLoc, callBar}, Value: []int64{5, 50e6}},
			{Location: []*profile.Location{selfLoc}, Value: []int64{1, 10e6}},
		},
		Function: []*profile.Function{mainFn, fooFn, barFn},
		Location: []*profile.Location{callFoo, callBar, selfLoc, fooLoc, barLoc},
	}
}

func TestCollectCPU(t *testing.T) {
	fls := CollectCPU(demoProfile("main.go"), []string{"main.main", "main.foo", "main.main", "main.missing"})
	require.Len(t, fls, 3)

	m := fls[0]
	assert.Equal(t, "main.main", m.Function)
	assert.Equal(t, "main.go", m.File)
	assert.Equal(t, int64(3), m.Start)
	assert.Equal(t, int64(160e6), m.Total)
	assert.Equal(t, int64(16), m.Hits)
	require.Len(t, m.Lines, 3)
	assert.Equal(t, LineStat{Line: 4, Hits: 10, Value: 100e6}, m.Lines[0])
	assert.Equal(t, LineStat{Line: 6, Hits: 1, Value: 10e6}, m.Lines[2])
	assert.Equal(t, int64(6), m.Last())

	_, ok := m.Stat(3)
	assert.False(t, ok)
	st, ok := m.Stat(5)
	require.True(t, ok)
	assert.Equal(t, int64(50e6), st.Value)

	foo := fls[1]
	assert.Equal(t, int64(100e6), foo.Total)
	require.Len(t, foo.Lines, 1)
	assert.Equal(t, int64(22), foo.Lines[0].Line)

	missing := fls[2]
	assert.Equal(t, "main.missing", missing.Function)
	assert.Empty(t, missing.Lines)
	assert.Equal(t, int64(0), missing.Last())
}

func TestCollectCountsRecursionOnce(t *testing.T) {
	fn := &profile.Function{ID: 1, Name: "main.walk", Filename: "walk.go", StartLine: 1}
	outer := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn, Line: 3}}}
	inner := &profile.Location{ID: 2, Line: []profile.Line{{Function: fn, Line: 5}}}
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{inner, outer}, Value: []int64{7}},
		},
	}

	fls := Collect(p, []string{"main.walk"}, 0, -1)
	require.Len(t, fls, 1)
	assert.Equal(t, int64(7), fls[0].Total)
	assert.Equal(t, []LineStat{{Line: 5, Hits: 1, Value: 7}}, fls[0].Lines)
}

func TestWriteTimes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(file, []byte(demoSource), 0o600))

	fls := CollectCPU(demoProfile(file), []string{"main.main", "main.absent"})

	var buf bytes.Buffer
	require.NoError(t, WriteTimes(&buf, fls, source.NewCache()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Timer unit: 1e-06 s\n"))
	assert.Contains(t, out, "Total time: 0.16 s\n")
	assert.Contains(t, out, "Function: main.main at line 3\n")
	assert.Contains(t, out, "     4        10     100000.0  10000.0     62.5  foo()\n")
	assert.Contains(t, out, "     3                                           func main() {\n")
	assert.Contains(t, out, "Function: main.absent (no samples)\n")
}
