// Package classfile turns class-file bytes into structural descriptors.
// Instruction semantics are out of scope; only declarations and the type
// names they reference are extracted.
package classfile

import (
	"sort"
	"strings"
)

// Decoder converts the bytes of one class artifact into a descriptor.
// Implementations must be safe for concurrent use.
type Decoder interface {
	Decode(data []byte) (*ClassDescriptor, error)
}

// Modifiers is the access-flag bitset of a class or member.
type Modifiers uint16

const (
	AccPublic       Modifiers = 0x0001
	AccPrivate      Modifiers = 0x0002
	AccProtected    Modifiers = 0x0004
	AccStatic       Modifiers = 0x0008
	AccFinal        Modifiers = 0x0010
	AccSynchronized Modifiers = 0x0020
	AccVolatile     Modifiers = 0x0040
	AccBridge       Modifiers = 0x0040
	AccTransient    Modifiers = 0x0080
	AccVarargs      Modifiers = 0x0080
	AccNative       Modifiers = 0x0100
	AccInterface    Modifiers = 0x0200
	AccAbstract     Modifiers = 0x0400
	AccStrict       Modifiers = 0x0800
	AccSynthetic    Modifiers = 0x1000
	AccAnnotation   Modifiers = 0x2000
	AccEnum         Modifiers = 0x4000
	AccModule       Modifiers = 0x8000
)

func (m Modifiers) Has(flag Modifiers) bool { return m&flag == flag }

func (m Modifiers) IsPublic() bool     { return m.Has(AccPublic) }
func (m Modifiers) IsPrivate() bool    { return m.Has(AccPrivate) }
func (m Modifiers) IsProtected() bool  { return m.Has(AccProtected) }
func (m Modifiers) IsStatic() bool     { return m.Has(AccStatic) }
func (m Modifiers) IsFinal() bool      { return m.Has(AccFinal) }
func (m Modifiers) IsInterface() bool  { return m.Has(AccInterface) }
func (m Modifiers) IsAbstract() bool   { return m.Has(AccAbstract) }
func (m Modifiers) IsSynthetic() bool  { return m.Has(AccSynthetic) }
func (m Modifiers) IsAnnotation() bool { return m.Has(AccAnnotation) }
func (m Modifiers) IsEnum() bool       { return m.Has(AccEnum) }

// Visibility names the access level for display.
func (m Modifiers) Visibility() string {
	switch {
	case m.IsPublic():
		return "public"
	case m.IsProtected():
		return "protected"
	case m.IsPrivate():
		return "private"
	default:
		return "package"
	}
}

// Member is a field or method declaration.
type Member struct {
	Name        string
	Descriptor  string
	Modifiers   Modifiers
	Types       []string // binary names from the descriptor
	Annotations []string
}

// ClassDescriptor is the structural record of one decoded class.
// Type names are binary names (a.b.Outer$Inner).
type ClassDescriptor struct {
	Name           string
	SuperclassName string // empty only for the hierarchy root and module-info
	InterfaceNames []string
	Modifiers      Modifiers
	Fields         []Member
	Methods        []Member
	Annotations    []string
	SourceFile     string
	MajorVersion   uint16
	MinorVersion   uint16

	// constantTypes are class references from the constant pool.
	constantTypes []string
}

// PackageName is the dotted package of the class; empty for the default package.
func (d *ClassDescriptor) PackageName() string {
	return PackageOf(d.Name)
}

// IsInterface reports interface or annotation declarations.
func (d *ClassDescriptor) IsInterface() bool { return d.Modifiers.IsInterface() }

// ReferencedTypes returns every type name the declaration mentions: the
// superclass, interfaces, member signatures, annotations and constant-pool
// class references. The result is sorted, unique and excludes the class
// itself.
func (d *ClassDescriptor) ReferencedTypes() []string {
	seen := make(map[string]struct{})
	add := func(names ...string) {
		for _, n := range names {
			if n == "" || n == d.Name {
				continue
			}
			seen[n] = struct{}{}
		}
	}

	add(d.SuperclassName)
	add(d.InterfaceNames...)
	add(d.Annotations...)
	for _, members := range [][]Member{d.Fields, d.Methods} {
		for _, m := range members {
			add(m.Types...)
			add(m.Annotations...)
		}
	}
	add(d.constantTypes...)

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// PackageOf returns the package part of a binary class name.
func PackageOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[:idx]
	}
	return ""
}

// SimpleNameOf returns the class name without package or enclosing classes.
func SimpleNameOf(name string) string {
	simple := name[strings.LastIndex(name, ".")+1:]
	if idx := strings.LastIndex(simple, "$"); idx >= 0 && idx < len(simple)-1 {
		return simple[idx+1:]
	}
	return simple
}

// BinaryName converts an internal name (a/b/C) to a binary name (a.b.C).
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// DescriptorTypes extracts the referenced class names of a field or method
// descriptor, e.g. "(ILjava/lang/String;[La/B;)V" yields java.lang.String and
// a.B. Primitive types are skipped.
func DescriptorTypes(desc string) []string {
	var out []string
	for i := 0; i < len(desc); i++ {
		if desc[i] != 'L' {
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			break
		}
		out = append(out, BinaryName(desc[i+1:i+end]))
		i += end
	}
	return out
}

// classRefName normalises the name of a CONSTANT_Class entry. Array classes
// are stored as descriptors; primitive arrays reference no class.
func classRefName(internal string) string {
	if !strings.HasPrefix(internal, "[") {
		return BinaryName(internal)
	}
	types := DescriptorTypes(strings.TrimLeft(internal, "["))
	if len(types) == 0 {
		return ""
	}
	return types[0]
}
