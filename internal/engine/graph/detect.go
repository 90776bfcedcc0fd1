package graph

import (
	"sort"

	"archimport/internal/engine/classfile"
)

// PackageGraph is the package level view of the direct class dependencies
// in a frozen graph. Packages that hold only stubs are external.
type PackageGraph struct {
	Internal []string
	External []string
	// Edges counts class dependencies from one package to another.
	Edges map[string]map[string]int
}

// PackageDependencies folds class dependencies into package dependencies.
// Dependencies within a package are dropped.
func (c *Classes) PackageDependencies() *PackageGraph {
	pg := &PackageGraph{Edges: make(map[string]map[string]int)}
	internal := make(map[string]bool)
	external := make(map[string]bool)

	c.Each(func(cls *Class) bool {
		from := cls.PackageName()
		internal[from] = true
		for _, dep := range cls.DirectDependencies() {
			to := classfile.PackageOf(dep.Name())
			if to == from {
				continue
			}
			if dep.IsStub() {
				external[to] = true
			}
			if pg.Edges[from] == nil {
				pg.Edges[from] = make(map[string]int)
			}
			pg.Edges[from][to]++
		}
		return true
	})

	for name := range internal {
		pg.Internal = append(pg.Internal, name)
		delete(external, name)
	}
	for name := range external {
		pg.External = append(pg.External, name)
	}
	sort.Strings(pg.Internal)
	sort.Strings(pg.External)
	return pg
}

// Targets returns the packages from depends on, sorted.
func (pg *PackageGraph) Targets(from string) []string {
	out := make([]string, 0, len(pg.Edges[from]))
	for to := range pg.Edges[from] {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// DetectCycles returns the package cycles found by a depth-first walk over
// the internal packages in name order. Each cycle starts at the package
// where the walk entered it.
func (pg *PackageGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	for _, name := range pg.Internal {
		if !visited[name] {
			pg.findCycles(name, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

func (pg *PackageGraph) findCycles(curr string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range pg.Targets(curr) {
		if onStack[next] {
			for i, name := range path {
				if name == next {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					*cycles = append(*cycles, cycle)
					break
				}
			}
		} else if !visited[next] {
			pg.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// Chain returns the shortest package dependency chain from one package to
// another, preferring lexically smaller packages on ties.
func (pg *PackageGraph) Chain(from, to string) ([]string, bool) {
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range pg.Targets(curr) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []string{to}
				for node := to; node != from; node = prev[node] {
					path = append(path, prev[node])
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
