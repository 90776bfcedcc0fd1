package graph

import "strings"

// Classes is the immutable result of an import: imported classes keyed by
// name, the stubs they reference, the package tree and the non-fatal issues
// recorded on the way.
type Classes struct {
	nodes  map[string]*Class
	names  []string
	stubs  []string
	root   *Package
	issues []error
}

// Get returns an imported class. Stubs are not returned.
func (c *Classes) Get(name string) (*Class, bool) {
	node, ok := c.nodes[name]
	if !ok || node.stub {
		return nil, false
	}
	return node, true
}

// Contain reports whether name was imported.
func (c *Classes) Contain(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Lookup returns the node for name, stub or imported.
func (c *Classes) Lookup(name string) (*Class, bool) {
	node, ok := c.nodes[name]
	return node, ok
}

// Names returns imported class names in lexical order.
func (c *Classes) Names() []string { return append([]string(nil), c.names...) }

// Stubs returns stub class names in lexical order.
func (c *Classes) Stubs() []string { return append([]string(nil), c.stubs...) }

// Len is the number of imported classes.
func (c *Classes) Len() int { return len(c.names) }

func (c *Classes) IsEmpty() bool { return len(c.names) == 0 }

// Each visits imported classes in name order until fn returns false.
func (c *Classes) Each(fn func(*Class) bool) {
	for _, name := range c.names {
		if !fn(c.nodes[name]) {
			return
		}
	}
}

// DefaultPackage is the root of the package tree. It always exists.
func (c *Classes) DefaultPackage() *Package { return c.root }

// ContainPackage reports whether the dotted package exists.
func (c *Classes) ContainPackage(name string) bool {
	_, ok := c.GetPackage(name)
	return ok
}

// GetPackage returns the package node for a dotted path; "" is the default package.
func (c *Classes) GetPackage(name string) (*Package, bool) {
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return c.root, true
	}
	return c.root.GetPackage(name)
}

// Issues returns the non-fatal problems recorded during the import.
func (c *Classes) Issues() []error { return append([]error(nil), c.issues...) }

func (c *Classes) imported() []*Class {
	out := make([]*Class, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.nodes[name])
	}
	return out
}

// resolve maps names to nodes, skipping names unknown to the graph.
func (c *Classes) resolve(names []string) []*Class {
	out := make([]*Class, 0, len(names))
	for _, name := range names {
		if node, ok := c.nodes[name]; ok {
			out = append(out, node)
		}
	}
	return out
}
