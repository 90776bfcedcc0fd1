package report

import (
	"fmt"
	"strings"
	"unicode"

	"archimport/internal/engine/graph"
)

// externalAggregationThreshold is the number of external packages above
// which they are drawn as one node.
const externalAggregationThreshold = 10

const externalAggregateNodeID = "__external_aggregate__"

// MermaidGenerator renders a package dependency graph as a Mermaid flowchart.
type MermaidGenerator struct {
	graph *graph.PackageGraph
}

func NewMermaidGenerator(g *graph.PackageGraph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

func (m *MermaidGenerator) Generate(cycles [][]string) (string, error) {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	internal := m.graph.Internal
	external := m.graph.External
	aggregate := len(external) > externalAggregationThreshold
	externalSet := make(map[string]bool, len(external))
	for _, pkg := range external {
		externalSet[pkg] = true
	}

	allNames := append(append([]string{}, internal...), external...)
	if aggregate {
		allNames = append(allNames, externalAggregateNodeID)
	}
	ids := makeMermaidIDs(allNames)

	for _, pkg := range internal {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[pkg], escapeMermaidLabel(packageLabel(pkg)))
	}
	if aggregate {
		fmt.Fprintf(&b, "  %s[\"External\\n(%d packages)\"]\n", ids[externalAggregateNodeID], len(external))
	} else {
		for _, pkg := range external {
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[pkg], escapeMermaidLabel(pkg))
		}
	}

	b.WriteString("\n")
	if len(internal) > 0 {
		b.WriteString("  classDef internalNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px;\n")
		fmt.Fprintf(&b, "  class %s internalNode;\n", strings.Join(toIDs(internal, ids), ","))
	}
	if len(external) > 0 {
		b.WriteString("  classDef externalNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3;\n")
		if aggregate {
			fmt.Fprintf(&b, "  class %s externalNode;\n", ids[externalAggregateNodeID])
		} else {
			fmt.Fprintf(&b, "  class %s externalNode;\n", strings.Join(toIDs(external, ids), ","))
		}
	}
	if cyclePkgs := cyclePackageSet(cycles); len(cyclePkgs) > 0 {
		var names []string
		for _, pkg := range internal {
			if cyclePkgs[pkg] {
				names = append(names, pkg)
			}
		}
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		fmt.Fprintf(&b, "  class %s cycleNode;\n", strings.Join(toIDs(names, ids), ","))
	}

	b.WriteString("\n")
	cycleEdges := cycleEdgeSet(cycles)
	var cycleLinks []int
	linkIndex := 0
	for _, from := range internal {
		externalCount := 0
		for _, to := range m.graph.Targets(from) {
			if aggregate && externalSet[to] {
				externalCount++
				continue
			}
			fmt.Fprintf(&b, "  %s -->|%d| %s\n", ids[from], m.graph.Edges[from][to], ids[to])
			if cycleEdges[from][to] {
				cycleLinks = append(cycleLinks, linkIndex)
			}
			linkIndex++
		}
		if externalCount > 0 {
			fmt.Fprintf(&b, "  %s -.->|ext:%d| %s\n", ids[from], externalCount, ids[externalAggregateNodeID])
			linkIndex++
		}
	}
	if len(cycleLinks) > 0 {
		parts := make([]string, len(cycleLinks))
		for i, idx := range cycleLinks {
			parts[i] = fmt.Sprint(idx)
		}
		fmt.Fprintf(&b, "  linkStyle %s stroke:#cc0000,stroke-width:2px;\n", strings.Join(parts, ","))
	}
	return b.String(), nil
}

func sanitizeMermaidID(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func toIDs(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := ids[name]; ok {
			out = append(out, id)
		}
	}
	return out
}
