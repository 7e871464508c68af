package callgraph

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrGraphvizMissing indicates the dot binary could not be found.
var ErrGraphvizMissing = errors.New("graphviz dot binary not found")

// WriteDOT writes g in the Graphviz DOT language.
func (g *Graph) WriteDOT(w io.Writer, title string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "digraph %s {\n", quote(title))
	fmt.Fprintf(bw, "  label=%s;\n", quote(fmt.Sprintf("%s\ntotal %.3fs", title, seconds(g.Total))))
	bw.WriteString("  labelloc=t;\n")
	bw.WriteString("  node [shape=box style=filled fontname=\"Helvetica\"];\n")
	bw.WriteString("  edge [fontname=\"Helvetica\"];\n")

	for _, n := range g.Nodes {
		label := fmt.Sprintf("%s\nflat %.3fs (%.1f%%)\ncum %.3fs (%.1f%%)",
			n.Function,
			seconds(n.Flat), 100*g.Share(n.Flat),
			seconds(n.Cum), 100*g.Share(n.Cum))
		fmt.Fprintf(bw, "  n%d [label=%s fillcolor=%s tooltip=%s];\n",
			n.ID, quote(label), quote(hexColor(HeatColor(g.Share(n.Cum)))), quote(n.File))
	}

	for _, e := range g.Edges {
		width := 1 + 4*g.Share(e.Weight)
		fmt.Fprintf(bw, "  n%d -> n%d [label=%s penwidth=%.2f];\n",
			e.Caller.ID, e.Callee.ID, quote(fmt.Sprintf("%.3fs", seconds(e.Weight))), width)
	}

	bw.WriteString("}\n")
	return bw.Flush()
}

// Render writes g to path. A .dot (or extensionless) path receives the DOT
// source; any other extension is passed to dotBinary as the output format.
func Render(ctx context.Context, g *Graph, title, path, dotBinary string) error {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	if ext == "" || ext == "dot" || ext == "gv" {
		f, err := os.Create(path) //nolint:gosec // Output path is chosen by the caller.
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := g.WriteDOT(f, title); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return f.Close()
	}

	bin, err := exec.LookPath(dotBinary)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrGraphvizMissing, dotBinary)
	}

	var src bytes.Buffer
	if err := g.WriteDOT(&src, title); err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-T"+ext, "-o", path) //nolint:gosec // Binary comes from configuration.
	cmd.Stdin = &src
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("dot -T%s failed: %w: %s", ext, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func seconds(ns int64) float64 {
	return float64(ns) / 1e9
}

// quote returns s as a DOT string. Newlines become \n line breaks.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
