package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineReport = `profiletk report v1
Samples: 15  Duration: 0.150  CPU time: 0.150

Program: demo

150.000 main.main  demo.go:10
├─ 100.000 main.foo  demo.go:3
│  └─ 100.000 [self]  demo.go:3
└─ 50.000 main.bar  demo.go:6
`

func TestParseTimingsBaseline(t *testing.T) {
	row, err := FormatV1.ParseTimings("baseline", baselineReport)
	require.NoError(t, err)

	assert.Equal(t, "baseline", row.RunID)
	assert.Equal(t, []string{"main.foo", "main.bar"}, row.Names())
	foo, _ := row.Time("main.foo")
	bar, _ := row.Time("main.bar")
	assert.Equal(t, 100.0, foo)
	assert.Equal(t, 50.0, bar)
}

func TestParseTimingsSumsRepeatedFunctions(t *testing.T) {
	raw := Raw(`Program: demo
0.300 main.main  demo.go:1
├─ 0.100 main.work  demo.go:5
│  └─ 0.025 main.helper  demo.go:20
└─ 0.200 main.other  demo.go:9
   └─ 0.075 main.helper  demo.go:20
`)
	row, err := FormatV1.ParseTimings("r", raw)
	require.NoError(t, err)

	helper, ok := row.Time("main.helper")
	require.True(t, ok)
	assert.InDelta(t, 0.1, helper, 1e-9)
	assert.Equal(t, 3, row.Len())
}

func TestParseTimingsExclusion(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "module", line: "├─ 9.000 <module>  demo.py:1"},
		{name: "self", line: "├─ 9.000 [self]  demo.go:1"},
		{name: "self in path", line: "├─ 9.000 main.work  /home/myself/demo.go:1"},
		{name: "dunder", line: "├─ 9.000 __init__  demo.py:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Raw("Program: demo\n" + tt.line + "\n└─ 1.000 main.kept  demo.go:2\n")
			row, err := FormatV1.ParseTimings("r", raw)
			require.NoError(t, err)
			assert.Equal(t, []string{"main.kept"}, row.Names())
		})
	}
}

func TestParseTimingsSkipsShortAndHeaderLines(t *testing.T) {
	raw := Raw(`├─ 7.000 main.header  demo.go:1
Program: demo
0.300 main.main  demo.go:1
└─ 0.100 main.short
`)
	row, err := FormatV1.ParseTimings("r", raw)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Len())
}

func TestParseTimingsWithoutMarker(t *testing.T) {
	raw := Raw("├─ 1.000 main.foo  demo.go:1\n└─ 2.000 main.bar  demo.go:2\n")
	row, err := FormatV1.ParseTimings("r", raw)
	require.NoError(t, err)
	assert.Equal(t, "r", row.RunID)
	assert.Equal(t, 0, row.Len())
}

func TestParseTimingsMalformed(t *testing.T) {
	t.Run("bad time", func(t *testing.T) {
		raw := Raw("Program: demo\n└─ fast main.foo  demo.go:1\n")
		_, err := FormatV1.ParseTimings("r", raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedReport)

		var numErr *strconv.NumError
		require.True(t, errors.As(err, &numErr))
		assert.Equal(t, "fast", numErr.Num)
	})

	t.Run("missing separator", func(t *testing.T) {
		raw := Raw("Program: demo\n|- 1.000 main.foo  demo.go:1\n")
		_, err := FormatV1.ParseTimings("r", raw)
		assert.ErrorIs(t, err, ErrMalformedReport)
		assert.Contains(t, err.Error(), "line 2")
	})
}

func TestParseTimingsIsRepeatable(t *testing.T) {
	first, err := FormatV1.ParseTimings("baseline", baselineReport)
	require.NoError(t, err)
	second, err := FormatV1.ParseTimings("baseline", baselineReport)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestEntries(t *testing.T) {
	entries, err := FormatV1.Entries(baselineReport)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Label: "100.000 main.foo  demo.go:3", Depth: 0, Time: 100, Line: 7}, entries[0])
	assert.Equal(t, 1, entries[1].Depth)
	assert.True(t, entries[1].Aggregate)
	assert.Equal(t, "50.000 main.bar  demo.go:6", entries[2].Label)
	assert.Equal(t, 0, entries[2].Depth)
}

func TestEntriesIgnoreMarker(t *testing.T) {
	raw := Raw("├─ 7.000 main.header  demo.go:1\n")
	entries, err := FormatV1.Entries(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 7.0, entries[0].Time)
}

func TestEntriesMalformed(t *testing.T) {
	_, err := FormatV1.Entries("└─ nan? main.foo\n")
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestEncodeRoundTrip(t *testing.T) {
	roots := []*Node{{
		Time: 0.3, Name: "main.main", Location: "demo.go:1",
		Children: []*Node{
			{Time: 0.2, Name: "main.foo", Location: "demo.go:3", Children: []*Node{
				{Time: 0.15, Name: "main.leaf", Location: "demo.go:30"},
				{Time: 0.05, Name: "[self]", Location: "demo.go:3"},
			}},
			{Time: 0.1, Name: "main.bar", Location: "demo.go:6"},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, FormatV1.Encode(&buf, Header{Program: "demo", Samples: 30}, roots))
	raw := Raw(buf.String())
	require.NoError(t, FormatV1.Validate(raw))

	row, err := FormatV1.ParseTimings("r", raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.foo", "main.leaf", "main.bar"}, row.Names())

	entries, err := FormatV1.Entries(raw)
	require.NoError(t, err)
	depths := make([]int, len(entries))
	for i, e := range entries {
		depths[i] = e.Depth
	}
	assert.Equal(t, []int{0, 1, 1, 0}, depths)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     Raw
		wantErr error
	}{
		{name: "valid", raw: baselineReport},
		{name: "no marker", raw: "└─ 1.000 main.foo  demo.go:1\n", wantErr: ErrNoProgramMarker},
		{name: "no entries", raw: "Program: demo\n0.100 main.main  demo.go:1\n", wantErr: ErrMalformedReport},
		{name: "bad number", raw: "Program: demo\n└─ x main.foo  demo.go:1\n", wantErr: ErrMalformedReport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FormatV1.Validate(tt.raw)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "baseline.txt")
	require.NoError(t, os.WriteFile(path, []byte(baselineReport), 0o600))
	raw, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Raw(baselineReport), raw)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe}, 0o600))
	_, err = ReadFile(bad)
	assert.ErrorIs(t, err, ErrMalformedReport)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
