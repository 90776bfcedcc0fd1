// Package location identifies the origins of compiled class artifacts and
// enumerates them from directories, archives and runtime-module images.
package location

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Kind is the scheme tag of a Location. It decides how the artifact bytes are read.
type Kind string

const (
	KindFile    Kind = "file"
	KindArchive Kind = "archive"
	KindModule  Kind = "module"
)

const (
	SchemeFile = "file"
	SchemeJar  = "jar"
	SchemeJrt  = "jrt"
)

const classSuffix = ".class"

// Location identifies one candidate class artifact. It is an immutable value;
// two Locations are equal iff they address the same artifact.
type Location struct {
	kind      Kind
	container string // directory root, archive file or module image (absolute, OS separators)
	raw       string // entry path inside container, slash separated, as stored
	resource  string // class resource path, e.g. com/example/Foo.class
	module    string
	uri       string
	packed    bool // bytes live inside a zip container
}

// FromFile creates a Location for a class file below a directory root.
// rel is the slash separated path of the file relative to root.
func FromFile(root, rel string) Location {
	root = filepath.Clean(root)
	rel = path.Clean(filepath.ToSlash(rel))
	return Location{
		kind:      KindFile,
		container: root,
		raw:       rel,
		resource:  rel,
		uri:       fileURI(filepath.Join(root, filepath.FromSlash(rel))),
	}
}

// FromArchiveEntry creates a Location for an entry of a zip/jar archive.
func FromArchiveEntry(archivePath, entry string) Location {
	archivePath = filepath.Clean(archivePath)
	return Location{
		kind:      KindArchive,
		container: archivePath,
		raw:       entry,
		resource:  entry,
		uri:       SchemeJar + ":" + fileURI(archivePath) + "!/" + entry,
		packed:    true,
	}
}

// FromModuleDir creates a Location for a class file of an exploded runtime
// module. rel is relative to the module directory.
func FromModuleDir(moduleDir, module, rel string) Location {
	rel = path.Clean(filepath.ToSlash(rel))
	return Location{
		kind:      KindModule,
		container: filepath.Clean(moduleDir),
		raw:       rel,
		resource:  rel,
		module:    module,
		uri:       moduleURI(module, rel),
	}
}

// FromJmodEntry creates a Location for a class entry of a .jmod file. The
// entry carries the jmod "classes/" prefix; the resource path does not.
func FromJmodEntry(jmodPath, module, entry string) Location {
	resource := strings.TrimPrefix(entry, jmodClassesPrefix)
	return Location{
		kind:      KindModule,
		container: filepath.Clean(jmodPath),
		raw:       entry,
		resource:  resource,
		module:    module,
		uri:       moduleURI(module, resource),
		packed:    true,
	}
}

func moduleURI(module, resource string) string {
	return SchemeJrt + ":/" + module + "/" + resource
}

func fileURI(p string) string {
	slashed := filepath.ToSlash(p)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return SchemeFile + "://" + slashed
}

func (l Location) Kind() Kind { return l.kind }

// URI returns the canonical identifier of the artifact.
func (l Location) URI() string { return l.uri }

func (l Location) String() string { return l.uri }

// Scheme returns the URI scheme: file, jar or jrt.
func (l Location) Scheme() string {
	switch l.kind {
	case KindArchive:
		return SchemeJar
	case KindModule:
		return SchemeJrt
	default:
		return SchemeFile
	}
}

// Container returns the physical root holding the artifact.
func (l Location) Container() string { return l.container }

// Module returns the runtime module name, empty for non-module locations.
func (l Location) Module() string { return l.module }

// Resource returns the slash separated class resource path.
func (l Location) Resource() string { return l.resource }

// Path returns the file system path of an unpacked artifact, or the
// containing archive for packed ones.
func (l Location) Path() string {
	if l.packed {
		return l.container
	}
	return filepath.Join(l.container, filepath.FromSlash(l.raw))
}

// Entry returns the entry name inside the container.
func (l Location) Entry() string { return l.raw }

// Packed reports whether the bytes live inside an archive.
func (l Location) Packed() bool { return l.packed }

func (l Location) IsZero() bool { return l.uri == "" }

// Contains reports whether part occurs anywhere in the URI.
func (l Location) Contains(part string) bool {
	return strings.Contains(l.uri, part)
}

// Matches reports whether the URI matches the compiled glob.
func (l Location) Matches(g glob.Glob) bool {
	return g != nil && g.Match(l.uri)
}

// IsArchive reports archive or runtime-module origin.
func (l Location) IsArchive() bool { return l.kind == KindArchive || l.kind == KindModule }

func (l Location) IsJar() bool { return l.kind == KindArchive }

func (l Location) IsModule() bool { return l.kind == KindModule }

func (l Location) IsClassFile() bool { return strings.HasSuffix(l.resource, classSuffix) }

// ClassName derives the binary class name from the resource path.
func (l Location) ClassName() string {
	return ResourceToClassName(l.resource)
}

// ResourceToClassName converts com/example/Foo.class to com.example.Foo.
func ResourceToClassName(resource string) string {
	return strings.ReplaceAll(strings.TrimSuffix(resource, classSuffix), "/", ".")
}

// ClassNameToResource converts com.example.Foo to com/example/Foo.class.
func ClassNameToResource(name string) string {
	return strings.ReplaceAll(name, ".", "/") + classSuffix
}

// PackageToResourcePrefix converts com.example to com/example/; the default
// package maps to the empty prefix.
func PackageToResourcePrefix(pkg string) string {
	pkg = strings.Trim(strings.TrimSpace(pkg), ".")
	if pkg == "" {
		return ""
	}
	return strings.ReplaceAll(pkg, ".", "/") + "/"
}
