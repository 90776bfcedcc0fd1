// # internal/engine/graph/package.go
package graph

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Package is one node of the package tree. The default package is the root
// and has an empty name.
type Package struct {
	name     string
	relative string
	parent   *Package
	classes  []*Class
	children map[string]*Package
}

func newPackage(parent *Package, relative string) *Package {
	name := relative
	if parent != nil && parent.name != "" {
		name = parent.name + "." + relative
	}
	return &Package{name: name, relative: relative, parent: parent, children: make(map[string]*Package)}
}

// Name is the full dotted name.
func (p *Package) Name() string { return p.name }

// RelativeName is the last segment of the name.
func (p *Package) RelativeName() string { return p.relative }

// Parent is nil for the default package.
func (p *Package) Parent() *Package { return p.parent }

func (p *Package) IsDefault() bool { return p.parent == nil }

// Classes returns the classes declared directly in this package.
func (p *Package) Classes() []*Class { return append([]*Class(nil), p.classes...) }

// AllClasses returns the classes of this package and every subpackage,
// sorted by name.
func (p *Package) AllClasses() []*Class {
	var out []*Class
	p.walk(func(pkg *Package) {
		out = append(out, pkg.classes...)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Subpackages returns the direct child packages sorted by name.
func (p *Package) Subpackages() []*Package {
	out := make([]*Package, 0, len(p.children))
	for _, child := range p.children {
		out = append(out, child)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].relative < out[j].relative })
	return out
}

// AllSubpackages returns every package below this one, in depth-first name order.
func (p *Package) AllSubpackages() []*Package {
	var out []*Package
	p.walk(func(pkg *Package) {
		if pkg != p {
			out = append(out, pkg)
		}
	})
	return out
}

// GetPackage resolves a dotted path relative to this package, descending
// as many levels as the path has segments.
func (p *Package) GetPackage(relative string) (*Package, bool) {
	relative = strings.Trim(strings.TrimSpace(relative), ".")
	if relative == "" {
		return p, true
	}
	current := p
	for _, seg := range strings.Split(relative, ".") {
		child, ok := current.children[seg]
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// ContainsPackage reports whether the dotted path exists below this package.
func (p *Package) ContainsPackage(relative string) bool {
	_, ok := p.GetPackage(relative)
	return ok
}

// ContainsClass reports whether a class of the given name is declared
// directly in this package.
func (p *Package) ContainsClass(name string) bool {
	idx := sort.Search(len(p.classes), func(i int) bool { return p.classes[i].name >= name })
	return idx < len(p.classes) && p.classes[idx].name == name
}

func (p *Package) String() string {
	if p.name == "" {
		return "<default>"
	}
	return p.name
}

func (p *Package) walk(fn func(*Package)) {
	fn(p)
	for _, child := range p.Subpackages() {
		child.walk(fn)
	}
}

// BuildPackageTree places every class under its package chain. Classes
// must be sorted by name. Top-level subtrees are independent and are built
// concurrently before being attached to the default package.
func BuildPackageTree(ctx context.Context, classes []*Class) (*Package, error) {
	root := newPackage(nil, "")

	groups := make(map[string][]*Class)
	var order []string
	for _, c := range classes {
		pkg := c.PackageName()
		if pkg == "" {
			c.pkg = root
			root.classes = append(root.classes, c)
			continue
		}
		top, _, _ := strings.Cut(pkg, ".")
		if _, seen := groups[top]; !seen {
			order = append(order, top)
		}
		groups[top] = append(groups[top], c)
	}

	subtrees := make([]*Package, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, top := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			subtrees[i] = buildSubtree(root, top, groups[top])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, sub := range subtrees {
		root.children[sub.relative] = sub
	}
	return root, nil
}

// buildSubtree only reads root; the child is attached by the caller.
func buildSubtree(root *Package, top string, classes []*Class) *Package {
	subtree := newPackage(root, top)
	for _, c := range classes {
		current := subtree
		segments := strings.Split(c.PackageName(), ".")
		for _, seg := range segments[1:] {
			child, ok := current.children[seg]
			if !ok {
				child = newPackage(current, seg)
				current.children[seg] = child
			}
			current = child
		}
		c.pkg = current
		current.classes = append(current.classes, c)
	}
	return subtree
}
