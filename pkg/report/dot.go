package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-cflow/pkg/cfg"
)

// WriteDOT renders the successfully lowered units of a forest as one
// Graphviz digraph with a cluster per unit. Entry blocks are drawn as double
// circles, exit blocks as boxes, and the two edges leaving an if block are
// labelled True and False.
func WriteDOT(w io.Writer, name string, forest *cfg.Forest) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", quote(name))
	fmt.Fprintln(bw, "  node [shape=ellipse];")

	for i, u := range forest.Units {
		if !u.OK() {
			continue
		}
		fmt.Fprintf(bw, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(bw, "    label=%s;\n", quote(strings.Trim(header(u), "= ")))
		for _, b := range u.Blocks {
			fmt.Fprintf(bw, "    %d [label=%s%s];\n", b.ID, quote(label(b)), shape(b))
		}
		for _, e := range u.Edges() {
			fmt.Fprintf(bw, "    %d -> %d%s;\n", e.From, e.To, edgeAttrs(u, e))
		}
		fmt.Fprintln(bw, "  }")
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// label mirrors the text report: code lines, then id and the defined and
// used names.
func label(b *cfg.Block) string {
	var sb strings.Builder
	for _, line := range b.Code {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("##############\n")
	fmt.Fprintf(&sb, "id: %d\nd: %s\nu: %s", b.ID, names(b.Defs), names(b.Uses))
	return sb.String()
}

func shape(b *cfg.Block) string {
	switch {
	case b.Entry:
		return ", shape=doublecircle"
	case b.Exit:
		return ", shape=box"
	}
	return ""
}

func edgeAttrs(u *cfg.Unit, e cfg.Edge) string {
	if src := u.Block(e.From); src != nil && src.Type == cfg.BlockTypeBranch {
		switch e.Type {
		case cfg.EdgeTypeTrue:
			return ` [label="True"]`
		case cfg.EdgeTypeFalse:
			return ` [label="False"]`
		}
	}
	if e.Type == cfg.EdgeTypeBackEdge {
		return " [style=dashed]"
	}
	return ""
}

// quote produces a DOT double-quoted string.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
