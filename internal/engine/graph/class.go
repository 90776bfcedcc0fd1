// # internal/engine/graph/class.go
package graph

import (
	"archimport/internal/engine/classfile"
	"archimport/internal/engine/location"
)

// Class is one node of the class graph. A stub carries only its name: the
// type was referenced but never imported. References to other classes are
// held by name and resolved through the owning Classes.
type Class struct {
	name   string
	stub   bool
	order  int
	source location.Location
	desc   *classfile.ClassDescriptor

	owner *Classes
	pkg   *Package
}

func (c *Class) Name() string { return c.name }

func (c *Class) SimpleName() string { return classfile.SimpleNameOf(c.name) }

func (c *Class) PackageName() string { return classfile.PackageOf(c.name) }

// IsStub reports a referenced type whose bytes were never imported.
func (c *Class) IsStub() bool { return c.stub }

// Source is the location the class was imported from; zero for stubs.
func (c *Class) Source() location.Location { return c.source }

// Descriptor returns the decoded structure, nil for stubs.
func (c *Class) Descriptor() *classfile.ClassDescriptor { return c.desc }

func (c *Class) Modifiers() classfile.Modifiers {
	if c.desc == nil {
		return 0
	}
	return c.desc.Modifiers
}

func (c *Class) IsInterface() bool { return c.Modifiers().IsInterface() }

func (c *Class) SourceFile() string {
	if c.desc == nil {
		return ""
	}
	return c.desc.SourceFile
}

func (c *Class) SuperclassName() string {
	if c.desc == nil {
		return ""
	}
	return c.desc.SuperclassName
}

// Superclass resolves the superclass node, which may be a stub.
func (c *Class) Superclass() (*Class, bool) {
	name := c.SuperclassName()
	if name == "" {
		return nil, false
	}
	return c.owner.Lookup(name)
}

func (c *Class) Interfaces() []*Class {
	if c.desc == nil {
		return nil
	}
	return c.owner.resolve(c.desc.InterfaceNames)
}

func (c *Class) Fields() []classfile.Member {
	if c.desc == nil {
		return nil
	}
	return c.desc.Fields
}

func (c *Class) Methods() []classfile.Member {
	if c.desc == nil {
		return nil
	}
	return c.desc.Methods
}

func (c *Class) Annotations() []*Class {
	if c.desc == nil {
		return nil
	}
	return c.owner.resolve(c.desc.Annotations)
}

// DirectDependencies returns every class the declaration references, sorted by name.
func (c *Class) DirectDependencies() []*Class {
	if c.desc == nil {
		return nil
	}
	return c.owner.resolve(c.desc.ReferencedTypes())
}

// Package is the package node holding the class; nil for stubs.
func (c *Class) Package() *Package { return c.pkg }

func (c *Class) String() string {
	if c.stub {
		return c.name + " (stub)"
	}
	return c.name
}
