package callgraph

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProfile: main.main -> foo (100ms), main.main -> bar (50ms),
// main.main self (10ms), and a recursive foo -> foo sample (20ms).
func testProfile() *profile.Profile {
	mainFn := &profile.Function{ID: 1, Name: "main.main", Filename: "main.go", StartLine: 10}
	fooFn := &profile.Function{ID: 2, Name: "main.foo", Filename: "main.go", StartLine: 20}
	barFn := &profile.Function{ID: 3, Name: "main.bar", Filename: "main.go", StartLine: 30}

	mainLoc := &profile.Location{ID: 1, Line: []profile.Line{{Function: mainFn, Line: 12}}}
	fooLoc := &profile.Location{ID: 2, Line: []profile.Line{{Function: fooFn, Line: 22}}}
	barLoc := &profile.Location{ID: 3, Line: []profile.Line{{Function: barFn, Line: 31}}}

	return &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{fooLoc, mainLoc}, Value: []int64{10, 100e6}},
			{Location: []*profile.Location{barLoc, mainLoc}, Value: []int64{5, 50e6}},
			{Location: []*profile.Location{mainLoc}, Value: []int64{1, 10e6}},
			{Location: []*profile.Location{fooLoc, fooLoc, mainLoc}, Value: []int64{2, 20e6}},
		},
		Function: []*profile.Function{mainFn, fooFn, barFn},
		Location: []*profile.Location{mainLoc, fooLoc, barLoc},
	}
}

func nodeByName(g *Graph, name string) *Node {
	for _, n := range g.Nodes {
		if n.Function == name {
			return n
		}
	}
	return nil
}

func TestBuild(t *testing.T) {
	g := Build(testProfile(), Options{})

	assert.Equal(t, int64(180e6), g.Total)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "main.main", g.Nodes[0].Function)
	assert.Equal(t, 1, g.Nodes[0].ID)

	main := nodeByName(g, "main.main")
	assert.Equal(t, int64(180e6), main.Cum)
	assert.Equal(t, int64(10e6), main.Flat)

	foo := nodeByName(g, "main.foo")
	assert.Equal(t, int64(120e6), foo.Cum, "recursion counted once per sample")
	assert.Equal(t, int64(120e6), foo.Flat)

	require.Len(t, g.Edges, 3)
	assert.Equal(t, "main.main", g.Edges[0].Caller.Function)
	assert.Equal(t, "main.foo", g.Edges[0].Callee.Function)
	assert.Equal(t, int64(120e6), g.Edges[0].Weight)

	var self *Edge
	for _, e := range g.Edges {
		if e.Caller == foo && e.Callee == foo {
			self = e
		}
	}
	require.NotNil(t, self)
	assert.Equal(t, int64(20e6), self.Weight)
}

func TestBuildPrunesSmallNodes(t *testing.T) {
	g := Build(testProfile(), Options{NodeFraction: 0.5})

	require.Len(t, g.Nodes, 2)
	assert.Nil(t, nodeByName(g, "main.bar"))
	for _, e := range g.Edges {
		assert.NotEqual(t, "main.bar", e.Callee.Function)
	}
}

func TestBuildEmpty(t *testing.T) {
	g := Build(&profile.Profile{}, DefaultOptions)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.Equal(t, 0.0, g.Share(10))
}

func TestWriteDOT(t *testing.T) {
	g := Build(testProfile(), DefaultOptions)

	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf, "demo"))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph \"demo\" {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `n1 [label="main.main\nflat 0.010s (5.6%)\ncum 0.180s (100.0%)" fillcolor="#ff1414"`)
	assert.Contains(t, out, `n1 -> n2 [label="0.120s"`)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a\"b\\c\nd"`, quote("a\"b\\c\nd"))
}

func TestHSV(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, A: 255}, HSV(0, 1, 1))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, HSV(120, 1, 1))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, HSV(240, 1, 1))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, HSV(77, 0, 1))
}

func TestHeatColor(t *testing.T) {
	assert.Equal(t, "#ff1414", hexColor(HeatColor(1)))
	assert.Equal(t, "#ccccff", hexColor(HeatColor(0)))
	assert.Equal(t, HeatColor(1), HeatColor(3))
}

func TestRenderDOTFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.dot")
	require.NoError(t, Render(context.Background(), Build(testProfile(), DefaultOptions), "demo", path, "dot"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph")
}

func TestRenderMissingGraphviz(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.png")
	err := Render(context.Background(), Build(testProfile(), DefaultOptions), "demo", path, "profiletk-no-such-dot")
	assert.ErrorIs(t, err, ErrGraphvizMissing)
}
