package report

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/statify/internal/compiler"
)

// DOT renders the version lineage of res in Graphviz DOT syntax. Each cluster
// becomes a subgraph, dependencies are dashed edges and dead versions are
// filled red. Node names use the arena position, labels the display ID.
func DOT(res *compiler.Result) string {
	var b strings.Builder
	b.WriteString("digraph lineage {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontname=\"Helvetica\"];\n")

	for i, cluster := range res.Clusters {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=%q;\n", fmt.Sprintf("Cluster %d", i+1))
		for _, ref := range cluster {
			v := res.Engine.Version(ref)
			attrs := fmt.Sprintf("label=%q", v.ID())
			switch {
			case res.IsDead(ref):
				attrs += ", style=filled, fillcolor=\"#f4cccc\""
			case v.Synthetic():
				attrs += ", shape=ellipse"
			}
			fmt.Fprintf(&b, "    v%d [%s];\n", ref, attrs)
		}
		b.WriteString("  }\n")
	}

	for _, v := range res.Engine.Versions() {
		for _, d := range v.Dependencies {
			fmt.Fprintf(&b, "  v%d -> v%d [style=dashed];\n", d, v.Ref)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
