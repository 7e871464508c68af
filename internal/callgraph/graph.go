// Package callgraph turns a CPU profile into a caller/callee graph and
// writes it as Graphviz DOT, optionally rendering it with the dot binary.
package callgraph

import (
	"sort"

	"github.com/google/pprof/profile"

	"profiletk/internal/sampler"
)

// Node is one function of the graph.
type Node struct {
	ID       int
	Function string
	File     string
	Flat     int64 // time spent in the function itself
	Cum      int64 // time spent in the function and its callees
}

// Edge is a call from Caller to Callee with the time sampled along it.
type Edge struct {
	Caller *Node
	Callee *Node
	Weight int64
}

// Graph is the call graph of one profile. Weights are CPU nanoseconds.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
	Total int64
}

// Options tunes graph construction.
type Options struct {
	// NodeFraction drops nodes whose cumulative time is below this share of
	// the total. Edges touching a dropped node are dropped as well.
	NodeFraction float64
}

// DefaultOptions matches the pprof tool's default node pruning.
var DefaultOptions = Options{NodeFraction: 0.005}

type edgeKey struct{ caller, callee string }

// Build aggregates the samples of prof into a call graph.
func Build(prof *profile.Profile, opts Options) *Graph {
	vi := sampler.CPUValueIndex(prof)
	nodes := make(map[string]*Node)
	edges := make(map[edgeKey]int64)
	var total int64

	node := func(f sampler.Frame) *Node {
		n, ok := nodes[f.Function]
		if !ok {
			n = &Node{Function: f.Function, File: f.File}
			nodes[f.Function] = n
		}
		return n
	}

	if vi >= 0 {
		for _, s := range prof.Sample {
			v := s.Value[vi]
			if v == 0 {
				continue
			}
			total += v

			frames := sampler.Stack(s)
			if len(frames) == 0 {
				continue
			}

			// Recursive frames count once per sample.
			seenNode := make(map[string]bool, len(frames))
			seenEdge := make(map[edgeKey]bool, len(frames))
			for i, f := range frames {
				n := node(f)
				if !seenNode[f.Function] {
					n.Cum += v
					seenNode[f.Function] = true
				}
				if i == 0 {
					continue
				}
				k := edgeKey{caller: frames[i-1].Function, callee: f.Function}
				if !seenEdge[k] {
					edges[k] += v
					seenEdge[k] = true
				}
			}
			node(frames[len(frames)-1]).Flat += v
		}
	}

	g := &Graph{Total: total}
	cutoff := int64(opts.NodeFraction * float64(total))
	for _, n := range nodes {
		if n.Cum < cutoff {
			continue
		}
		g.Nodes = append(g.Nodes, n)
	}
	sort.Slice(g.Nodes, func(i, j int) bool {
		if g.Nodes[i].Cum != g.Nodes[j].Cum {
			return g.Nodes[i].Cum > g.Nodes[j].Cum
		}
		return g.Nodes[i].Function < g.Nodes[j].Function
	})

	kept := make(map[string]*Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.ID = i + 1
		kept[n.Function] = n
	}

	for k, w := range edges {
		caller, callee := kept[k.caller], kept[k.callee]
		if caller == nil || callee == nil {
			continue
		}
		g.Edges = append(g.Edges, &Edge{Caller: caller, Callee: callee, Weight: w})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Caller.ID != b.Caller.ID {
			return a.Caller.ID < b.Caller.ID
		}
		return a.Callee.ID < b.Callee.ID
	})

	return g
}

// Share returns v as a fraction of the graph total.
func (g *Graph) Share(v int64) float64 {
	if g.Total == 0 {
		return 0
	}
	return float64(v) / float64(g.Total)
}
