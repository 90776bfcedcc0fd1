package report

import (
	"fmt"
	"strings"

	"archimport/internal/engine/graph"
)

// TSVGenerator lists class level dependencies, one row per edge.
type TSVGenerator struct {
	classes *graph.Classes
}

func NewTSVGenerator(classes *graph.Classes) *TSVGenerator {
	return &TSVGenerator{classes: classes}
}

func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("From\tTo\tKind\tStub\tSource\n")
	t.classes.Each(func(c *graph.Class) bool {
		interfaces := make(map[string]bool)
		for _, iface := range c.Interfaces() {
			interfaces[iface.Name()] = true
		}
		for _, dep := range c.DirectDependencies() {
			kind := "uses"
			switch {
			case dep.Name() == c.SuperclassName():
				kind = "extends"
			case interfaces[dep.Name()]:
				kind = "implements"
			}
			fmt.Fprintf(&buf, "%s\t%s\t%s\t%t\t%s\n", c.Name(), dep.Name(), kind, dep.IsStub(), c.Source().URI())
		}
		return true
	})

	return buf.String(), nil
}
