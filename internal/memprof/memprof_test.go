package memprof

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profiletk/internal/source"
)

var sink [][]byte

//go:noinline
func allocateBlocks(n, size int) {
	for i := 0; i < n; i++ {
		sink = append(sink, make([]byte, size))
	}
}

func TestCaptureAllocs(t *testing.T) {
	defer func() { sink = nil }()

	p, err := CaptureAllocs(1, func() error {
		allocateBlocks(64, 4096)
		return nil
	})
	require.NoError(t, err)

	var found *Site
	sites := Sites(p)
	for i := range sites {
		if sites[i].Function == "profiletk/internal/memprof.allocateBlocks" {
			found = &sites[i]
			break
		}
	}
	require.NotNil(t, found, "allocation site not reported: %+v", sites)
	assert.GreaterOrEqual(t, found.Bytes, int64(64*4096))
	assert.GreaterOrEqual(t, found.Objects, int64(64))
}

func TestCaptureAllocsReturnsTargetError(t *testing.T) {
	want := errors.New("target failed")
	p, err := CaptureAllocs(0, func() error { return want })
	assert.Same(t, want, err)
	assert.NotNil(t, p)
}

// allocProfile has two allocation sites in main.build, one reached through
// a runtime frame.
func allocProfile(file string) *profile.Profile {
	buildFn := &profile.Function{ID: 1, Name: "main.build", Filename: file, StartLine: 1}
	growFn := &profile.Function{ID: 2, Name: "runtime.growslice", Filename: "slice.go", StartLine: 100}

	l3 := &profile.Location{ID: 1, Line: []profile.Line{{Function: buildFn, Line: 3}}}
	l4 := &profile.Location{ID: 2, Line: []profile.Line{{Function: buildFn, Line: 4}}}
	grow := &profile.Location{ID: 3, Line: []profile.Line{{Function: growFn, Line: 120}}}

	return &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "alloc_objects", Unit: "count"},
			{Type: "alloc_space", Unit: "bytes"},
		},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{l3}, Value: []int64{1, 1024}},
			{Location: []*profile.Location{grow, l4}, Value: []int64{4, 8192}},
			{Location: []*profile.Location{l3}, Value: []int64{1, 1024}},
			{Location: []*profile.Location{grow}, Value: []int64{1, 512}},
		},
	}
}

const buildSource = `func build() {
	var out []int
	buf := make([]byte, 1024)
	out = append(out, 1, 2, 3)
}
`

func TestSites(t *testing.T) {
	sites := Sites(allocProfile("main.go"))
	require.Len(t, sites, 2)
	assert.Equal(t, Site{Function: "main.build", File: "main.go", Line: 4, Bytes: 8192, Objects: 4}, sites[0])
	assert.Equal(t, Site{Function: "main.build", File: "main.go", Line: 3, Bytes: 2048, Objects: 2}, sites[1])
}

func TestWriteHotspots(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(file, []byte(buildSource), 0o600))

	var buf bytes.Buffer
	require.NoError(t, WriteHotspots(&buf, Sites(allocProfile(file)), 1, source.NewCache()))

	assert.Equal(t,
		"#1: "+file+":4: 8.0 KiB\n"+
			"     out = append(out, 1, 2, 3)\n"+
			"Total amount allocated: 10.0 KiB\n",
		buf.String())
}

func TestWriteHotspotsCountBeyondSites(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHotspots(&buf, Sites(allocProfile("missing.go")), 10, source.NewCache()))
	assert.Equal(t,
		"#1: missing.go:4: 8.0 KiB\n"+
			"#2: missing.go:3: 2.0 KiB\n"+
			"Total amount allocated: 10.0 KiB\n",
		buf.String())
}

func TestWriteLines(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(file, []byte(buildSource), 0o600))

	fls := Lines(allocProfile(file), []string{"main.build", "main.other"})
	require.Len(t, fls, 2)
	assert.Equal(t, int64(10240), fls[0].Total)

	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, fls, source.NewCache()))
	out := buf.String()

	assert.Contains(t, out, "Function: main.build allocated 10.0 KiB in 6 objects\n")
	assert.Contains(t, out, "     3        2.0 KiB            2   buf := make([]byte, 1024)\n")
	assert.Contains(t, out, "     4        8.0 KiB            4   out = append(out, 1, 2, 3)\n")
	assert.Contains(t, out, "Function: main.other (no allocations)\n")
}

func TestSampleUsage(t *testing.T) {
	want := errors.New("done")
	u, err := SampleUsage(context.Background(), 5*time.Millisecond, func() error {
		time.Sleep(30 * time.Millisecond)
		return want
	})
	assert.Same(t, want, err)
	require.GreaterOrEqual(t, len(u.Samples), 2)
	assert.Greater(t, u.Mean, 0.0)
	assert.GreaterOrEqual(t, u.Peak, u.Mean)

	var buf bytes.Buffer
	require.NoError(t, WriteUsage(&buf, u))
	assert.Contains(t, buf.String(), "MiB mean")
}

func TestSampleUsageStopsOnPanic(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = SampleUsage(context.Background(), time.Millisecond, func() error { panic("boom") })
	})
}

func TestSummarize(t *testing.T) {
	u := summarize([]float64{10, 30, 20})
	assert.Equal(t, 20.0, u.Mean)
	assert.Equal(t, 30.0, u.Peak)

	assert.Equal(t, 0.0, summarize(nil).Mean)
}
