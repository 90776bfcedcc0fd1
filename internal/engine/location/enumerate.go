package location

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	domainerrors "archimport/internal/core/errors"
	"archimport/internal/shared/observability"
)

const moduleInfoClass = "module-info.class"

// Root is one classpath root: a directory, an archive, or a runtime module
// image (exploded directory or .jmod file).
type Root struct {
	Path   string
	Kind   Kind
	Module string
}

func (r Root) String() string {
	if r.Module != "" {
		return fmt.Sprintf("%s:%s(%s)", r.Kind, r.Module, r.Path)
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.Path)
}

// IsArchive reports whether the root is a zip-backed container.
func (r Root) IsArchive() bool {
	return r.Kind == KindArchive || (r.Kind == KindModule && strings.HasSuffix(strings.ToLower(r.Path), ".jmod"))
}

// RootFor classifies an explicit path. Missing or unreadable paths yield a
// NotFound error naming the path.
func RootFor(p string) (Root, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return Root{}, domainerrors.NotFound(p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Root{}, domainerrors.NotFound(p, err)
	}
	if info.IsDir() {
		return Root{Path: abs, Kind: KindFile}, nil
	}
	f, err := os.Open(abs)
	if err != nil {
		return Root{}, domainerrors.NotFound(p, err)
	}
	_ = f.Close()
	if hasArchiveExtension(abs) || IsArchiveFile(abs) {
		return Root{Path: abs, Kind: KindArchive}, nil
	}
	return Root{Path: abs, Kind: KindFile}, nil
}

// Enumerator produces Locations from roots. Results are deduplicated by URI
// and ordered by root, then lexically within a root.
type Enumerator struct {
	logger *slog.Logger
}

func NewEnumerator(logger *slog.Logger) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enumerator{logger: logger}
}

// Path enumerates an explicit directory, archive or single class file.
func (e *Enumerator) Path(p string) ([]Location, error) {
	root, err := RootFor(p)
	if err != nil {
		return nil, err
	}
	return e.Root(root, "")
}

// Root enumerates the class files of root whose resource path starts with prefix.
func (e *Enumerator) Root(root Root, prefix string) ([]Location, error) {
	var (
		locs []Location
		err  error
	)
	switch {
	case root.IsArchive():
		locs, err = e.archive(root, prefix)
	case root.Kind == KindModule:
		locs, err = e.directory(root, prefix)
	default:
		info, statErr := os.Stat(root.Path)
		if statErr != nil {
			return nil, domainerrors.NotFound(root.Path, statErr)
		}
		if !info.IsDir() {
			locs = singleFile(root.Path, prefix)
		} else {
			locs, err = e.directory(root, prefix)
		}
	}
	if err != nil {
		return nil, err
	}
	observability.LocationsEnumerated.WithLabelValues(string(root.Kind)).Add(float64(len(locs)))
	return locs, nil
}

// Roots enumerates several roots. A root that fails is reported through the
// returned issues and skipped.
func (e *Enumerator) Roots(roots []Root, prefix string) ([]Location, []error) {
	var (
		all    []Location
		issues []error
	)
	for _, root := range roots {
		locs, err := e.Root(root, prefix)
		if err != nil {
			e.logger.Warn("skipping import root", "root", root.String(), "error", err)
			issues = append(issues, err)
			continue
		}
		all = append(all, locs...)
	}
	return Dedupe(all), issues
}

// Package enumerates every class below the package's resource path across
// roots, subpackages included. A package no root provides yields nothing.
func (e *Enumerator) Package(roots []Root, pkg string) ([]Location, []error) {
	return e.Roots(roots, PackageToResourcePrefix(pkg))
}

// Type enumerates the artifacts providing exactly the named class.
func (e *Enumerator) Type(roots []Root, className string) ([]Location, []error) {
	resource := ClassNameToResource(className)
	prefix := resource[:strings.LastIndex(resource, "/")+1]
	locs, issues := e.Roots(roots, prefix)
	matched := locs[:0]
	for _, loc := range locs {
		if loc.resource == resource {
			matched = append(matched, loc)
		}
	}
	return matched, issues
}

func (e *Enumerator) directory(root Root, prefix string) ([]Location, error) {
	start := root.Path
	if prefix != "" {
		start = filepath.Join(root.Path, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
		if info, err := os.Stat(start); err != nil || !info.IsDir() {
			return nil, nil
		}
	}

	var locs []Location
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p != start && errors.Is(err, fs.ErrPermission) {
				e.logger.Warn("skipping unreadable directory", "path", p, "error", err)
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !isClassResource(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root.Path, p)
		if err != nil {
			return err
		}
		if root.Kind == KindModule {
			locs = append(locs, FromModuleDir(root.Path, root.Module, rel))
		} else {
			locs = append(locs, FromFile(root.Path, rel))
		}
		return nil
	})
	if err != nil {
		return nil, domainerrors.NotFound(root.Path, err)
	}
	return locs, nil
}

func (e *Enumerator) archive(root Root, prefix string) ([]Location, error) {
	a, err := OpenArchive(root.Path)
	if err != nil {
		return nil, domainerrors.NotFound(root.Path, err)
	}
	defer a.Close()

	var locs []Location
	for _, name := range a.Names() {
		if strings.HasSuffix(name, "/") || !isClassResource(path.Base(name)) {
			continue
		}
		if a.IsJmod() {
			if !strings.HasPrefix(name, jmodClassesPrefix) {
				continue
			}
			loc := FromJmodEntry(root.Path, root.Module, name)
			if strings.HasPrefix(loc.resource, prefix) {
				locs = append(locs, loc)
			}
			continue
		}
		if strings.HasPrefix(name, prefix) {
			locs = append(locs, FromArchiveEntry(root.Path, name))
		}
	}
	return locs, nil
}

// singleFile handles an explicit class file root; its resource path is just
// the file name, so only the empty prefix matches.
func singleFile(p, prefix string) []Location {
	if prefix != "" || !isClassResource(filepath.Base(p)) {
		return nil
	}
	return []Location{FromFile(filepath.Dir(p), filepath.Base(p))}
}

func isClassResource(name string) bool {
	return strings.HasSuffix(name, classSuffix) && name != moduleInfoClass
}

// Dedupe drops repeated URIs, keeping the first occurrence.
func Dedupe(locs []Location) []Location {
	seen := make(map[string]struct{}, len(locs))
	out := make([]Location, 0, len(locs))
	for _, loc := range locs {
		if _, ok := seen[loc.uri]; ok {
			continue
		}
		seen[loc.uri] = struct{}{}
		out = append(out, loc)
	}
	return out
}

// SortByURI orders locations by canonical identifier.
func SortByURI(locs []Location) {
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].uri < locs[j].uri })
}
