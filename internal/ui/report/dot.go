// # internal/ui/report/dot.go
package report

import (
	"fmt"
	"strings"

	"archimport/internal/engine/graph"
)

const defaultPackageLabel = "(default)"

// DOTGenerator renders a package dependency graph for Graphviz.
type DOTGenerator struct {
	graph *graph.PackageGraph
}

func NewDOTGenerator(g *graph.PackageGraph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

func (d *DOTGenerator) Generate(cycles [][]string) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  overlap=false;\n\n")

	cycleEdges := cycleEdgeSet(cycles)
	cyclePackages := cyclePackageSet(cycles)
	internal := make(map[string]bool, len(d.graph.Internal))

	buf.WriteString("  subgraph cluster_internal {\n")
	buf.WriteString("    label=\"Imported Packages\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, pkg := range d.graph.Internal {
		internal[pkg] = true
		if cyclePackages[pkg] {
			fmt.Fprintf(&buf, "    %q [label=%q, fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", pkg, packageLabel(pkg))
		} else {
			fmt.Fprintf(&buf, "    %q [label=%q, color=\"darkslategrey\"];\n", pkg, packageLabel(pkg))
		}
	}
	buf.WriteString("  }\n\n")

	buf.WriteString("  // Referenced but not imported\n")
	buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n")
	for _, pkg := range d.graph.External {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", pkg, packageLabel(pkg))
	}
	buf.WriteString("\n")

	for _, from := range d.graph.Internal {
		for _, to := range d.graph.Targets(from) {
			count := d.graph.Edges[from][to]
			switch {
			case cycleEdges[from][to]:
				fmt.Fprintf(&buf, "  %q -> %q [color=\"red\", penwidth=3.0, label=\"CYCLE (%d)\"];\n", from, to, count)
			case internal[to]:
				fmt.Fprintf(&buf, "  %q -> %q [color=\"forestgreen\", penwidth=1.8, label=\"%d\"];\n", from, to, count)
			default:
				fmt.Fprintf(&buf, "  %q -> %q [color=\"grey\", style=dashed];\n", from, to)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func packageLabel(pkg string) string {
	if pkg == "" {
		return defaultPackageLabel
	}
	return pkg
}

func cycleEdgeSet(cycles [][]string) map[string]map[string]bool {
	edges := make(map[string]map[string]bool)
	for _, cycle := range cycles {
		for i := range cycle {
			from := cycle[i]
			to := cycle[(i+1)%len(cycle)]
			if edges[from] == nil {
				edges[from] = make(map[string]bool)
			}
			edges[from][to] = true
		}
	}
	return edges
}

func cyclePackageSet(cycles [][]string) map[string]bool {
	set := make(map[string]bool)
	for _, cycle := range cycles {
		for _, pkg := range cycle {
			set[pkg] = true
		}
	}
	return set
}
