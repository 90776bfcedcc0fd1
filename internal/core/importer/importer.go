// Package importer turns class-file roots into an immutable class graph.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"archimport/internal/core/config"
	domainerrors "archimport/internal/core/errors"
	"archimport/internal/core/ports"
	"archimport/internal/engine/classfile"
	"archimport/internal/engine/graph"
	"archimport/internal/engine/importopt"
	"archimport/internal/engine/location"
	"archimport/internal/engine/manifest"
)

// Import modes, used as metric labels and span names.
const (
	ModePaths     = "paths"
	ModeJars      = "jars"
	ModeLocations = "locations"
	ModePackages  = "packages"
	ModeClasses   = "classes"
	ModeClasspath = "classpath"
)

// Result is the outcome of one import run. The embedded Classes is
// immutable; Run describes how it was produced.
type Result struct {
	*graph.Classes
	Run ports.RunInfo
}

// ClassFileImporter imports classes from directories, archives, runtime
// modules and the ambient classpath. It is immutable; WithImportOption
// returns a modified copy. Safe for concurrent use.
type ClassFileImporter struct {
	cfg        config.Import
	settings   importopt.Settings
	options    importopt.Options
	decoder    classfile.Decoder
	classpath  location.Classpath
	runtime    location.RuntimeModules
	logger     *slog.Logger
	sinks      []ports.ResultSink
	enumerator *location.Enumerator
	expander   *manifest.Expander
}

type Option func(*ClassFileImporter)

// WithDecoder replaces the class-file decoder.
func WithDecoder(d classfile.Decoder) Option {
	return func(imp *ClassFileImporter) {
		if d != nil {
			imp.decoder = d
		}
	}
}

// WithImportOption adds options applied to every import.
func WithImportOption(opts ...importopt.ImportOption) Option {
	return func(imp *ClassFileImporter) {
		imp.options = imp.options.With(opts...)
	}
}

// WithRuntimeModules sets the platform module source used by ambient,
// package and class imports.
func WithRuntimeModules(rm location.RuntimeModules) Option {
	return func(imp *ClassFileImporter) { imp.runtime = rm }
}

// WithClasspath replaces the ambient classpath read from the environment.
func WithClasspath(cp location.Classpath) Option {
	return func(imp *ClassFileImporter) { imp.classpath = cp }
}

func WithLogger(logger *slog.Logger) Option {
	return func(imp *ClassFileImporter) {
		if logger != nil {
			imp.logger = logger
		}
	}
}

// WithSinks registers consumers of every successful result.
func WithSinks(sinks ...ports.ResultSink) Option {
	return func(imp *ClassFileImporter) {
		for _, s := range sinks {
			if s != nil {
				imp.sinks = append(imp.sinks, s)
			}
		}
	}
}

// New creates an importer. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*ClassFileImporter, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	imp := &ClassFileImporter{
		cfg: cfg.Import,
		settings: importopt.Settings{
			ExcludeTests:          cfg.Import.ExcludeTests,
			IncludeArchives:       cfg.Import.IncludeArchives,
			IncludeRuntimeModules: cfg.Import.IncludeRuntimeModules,
			ExcludeLocations:      cfg.Import.ExcludeLocations,
		},
		decoder: classfile.NewDecoder(),
		runtime: location.DiscoverRuntimeModules(cfg.Runtime.ModulesRoot, cfg.Runtime.JavaHome),
		logger:  slog.Default(),
	}
	if len(cfg.Classpath.Entries) > 0 {
		imp.classpath = location.Classpath{Entries: append([]string(nil), cfg.Classpath.Entries...)}
	} else {
		imp.classpath = location.ClasspathFromEnv(cfg.Classpath.Env)
	}

	base, err := importopt.FromSettings(imp.settings)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid import options")
	}
	imp.options = base

	for _, opt := range opts {
		opt(imp)
	}
	if imp.cfg.Workers <= 0 {
		imp.cfg.Workers = 1
	}

	imp.enumerator = location.NewEnumerator(imp.logger)
	imp.expander, err = manifest.NewExpander(imp.logger, cfg.Import.ManifestCacheSize)
	if err != nil {
		return nil, err
	}
	return imp, nil
}

// WithImportOption returns a copy of the importer that additionally
// applies opt to every import.
func (imp *ClassFileImporter) WithImportOption(opt importopt.ImportOption) *ClassFileImporter {
	next := *imp
	next.options = imp.options.With(opt)
	return &next
}

// Options returns the options applied to every import.
func (imp *ClassFileImporter) Options() importopt.Options { return imp.options }

// ImportPath imports one directory, archive or class file. A missing path
// fails with NOT_FOUND.
func (imp *ClassFileImporter) ImportPath(ctx context.Context, path string) (*Result, error) {
	return imp.ImportPaths(ctx, path)
}

// ImportPaths imports directories, archives and class files. Archives are
// followed through their manifest Class-Path. Missing paths are recorded as
// issues; the request fails only when none of the paths can be read.
func (imp *ClassFileImporter) ImportPaths(ctx context.Context, paths ...string) (*Result, error) {
	return imp.importRoots(ctx, ModePaths, paths, func(location.Root) error { return nil })
}

// ImportJar imports one archive and the archives its manifest references.
func (imp *ClassFileImporter) ImportJar(ctx context.Context, path string) (*Result, error) {
	return imp.ImportJars(ctx, path)
}

// ImportJars imports archives. Paths that are not archives are rejected
// with UNSUPPORTED_FORMAT.
func (imp *ClassFileImporter) ImportJars(ctx context.Context, paths ...string) (*Result, error) {
	return imp.importRoots(ctx, ModeJars, paths, func(root location.Root) error {
		if root.Kind != location.KindArchive {
			return domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeUnsupportedFormat, "not an archive"),
				domainerrors.CtxPath, root.Path)
		}
		return nil
	})
}

func (imp *ClassFileImporter) importRoots(ctx context.Context, mode string, paths []string, accept func(location.Root) error) (*Result, error) {
	return imp.run(ctx, mode, paths, imp.options, func(ctx context.Context, b *graph.Builder) ([]location.Location, error) {
		var (
			roots    []location.Root
			failures []error
		)
		for _, p := range paths {
			root, err := location.RootFor(p)
			if err == nil {
				err = accept(root)
			}
			if err != nil {
				imp.logger.Warn("skipping import root", "path", p, "error", err)
				failures = append(failures, err)
				continue
			}
			roots = append(roots, root)
		}
		if len(roots) == 0 && len(failures) > 0 {
			return nil, allRootsFailed(failures)
		}
		for _, f := range failures {
			b.AddFailure(f)
		}

		expanded, warnings := imp.expander.Expand(roots)
		for _, w := range warnings {
			b.AddFailure(w)
		}
		locs, issues := imp.enumerator.Roots(expanded, "")
		for _, issue := range issues {
			b.AddFailure(issue)
		}
		return locs, nil
	})
}

// ImportLocations decodes the given locations without enumeration.
func (imp *ClassFileImporter) ImportLocations(ctx context.Context, locs ...location.Location) (*Result, error) {
	uris := make([]string, 0, len(locs))
	for _, l := range locs {
		uris = append(uris, l.URI())
	}
	return imp.run(ctx, ModeLocations, uris, imp.options, func(context.Context, *graph.Builder) ([]location.Location, error) {
		return location.Dedupe(locs), nil
	})
}

// ImportPackages imports every class below the named packages, subpackages
// included, from the ambient classpath and the runtime modules. Packages
// nothing provides contribute no classes.
func (imp *ClassFileImporter) ImportPackages(ctx context.Context, packages ...string) (*Result, error) {
	return imp.run(ctx, ModePackages, packages, imp.options, func(ctx context.Context, b *graph.Builder) ([]location.Location, error) {
		roots := imp.scopeRoots(b)
		var all []location.Location
		for _, pkg := range packages {
			locs, issues := imp.enumerator.Package(roots, pkg)
			for _, issue := range issues {
				b.AddFailure(issue)
			}
			if len(locs) == 0 {
				imp.logger.Debug("package not found in scope", "package", pkg)
			}
			all = append(all, locs...)
		}
		return location.Dedupe(all), nil
	})
}

// ImportPackagesOf imports the packages declaring the named classes.
func (imp *ClassFileImporter) ImportPackagesOf(ctx context.Context, classNames ...string) (*Result, error) {
	seen := make(map[string]bool, len(classNames))
	var packages []string
	for _, name := range classNames {
		pkg := classfile.PackageOf(strings.TrimSpace(name))
		if seen[pkg] {
			continue
		}
		seen[pkg] = true
		packages = append(packages, pkg)
	}
	return imp.ImportPackages(ctx, packages...)
}

// ImportClass imports exactly the named class. It fails with
// CLASS_RESOLUTION_ERROR when nothing in scope provides it.
func (imp *ClassFileImporter) ImportClass(ctx context.Context, name string) (*Result, error) {
	res, err := imp.ImportClasses(ctx, name)
	if err != nil {
		return nil, err
	}
	if !res.Contain(name) {
		return nil, domainerrors.ClassResolution(name)
	}
	return res, nil
}

// ImportClasses imports exactly the named classes. Classes that cannot be
// located are recorded as issues; the request fails when none is found.
func (imp *ClassFileImporter) ImportClasses(ctx context.Context, names ...string) (*Result, error) {
	return imp.run(ctx, ModeClasses, names, imp.options, func(ctx context.Context, b *graph.Builder) ([]location.Location, error) {
		roots := imp.scopeRoots(b)
		var (
			all    []location.Location
			missed []error
		)
		for _, name := range names {
			name = strings.TrimSpace(name)
			locs, issues := imp.enumerator.Type(roots, name)
			for _, issue := range issues {
				b.AddFailure(issue)
			}
			if len(locs) == 0 {
				missed = append(missed, domainerrors.ClassResolution(name))
				continue
			}
			all = append(all, locs...)
		}
		if len(all) == 0 && len(missed) > 0 {
			if len(missed) == 1 {
				return nil, missed[0]
			}
			return nil, allRootsFailed(missed)
		}
		for _, m := range missed {
			b.AddFailure(m)
		}
		return location.Dedupe(all), nil
	})
}

// ImportClasspath imports the ambient classpath and the runtime modules.
// Without opts the configured ambient defaults apply, which leave archives
// and runtime modules out; any opts given replace those defaults.
func (imp *ClassFileImporter) ImportClasspath(ctx context.Context, opts ...importopt.ImportOption) (*Result, error) {
	if len(opts) == 0 {
		return imp.importClasspath(ctx, imp.options.Merge(importopt.AmbientFromSettings(imp.settings)))
	}
	return imp.ImportClasspathWith(ctx, importopt.New(opts...))
}

// ImportClasspathWith imports the ambient classpath filtered only by the
// importer's options and opts. The ambient defaults never apply, so an
// empty opts imports archives and runtime modules too.
func (imp *ClassFileImporter) ImportClasspathWith(ctx context.Context, opts importopt.Options) (*Result, error) {
	return imp.importClasspath(ctx, imp.options.Merge(opts))
}

func (imp *ClassFileImporter) importClasspath(ctx context.Context, options importopt.Options) (*Result, error) {
	return imp.run(ctx, ModeClasspath, imp.classpath.Entries, options, func(ctx context.Context, b *graph.Builder) ([]location.Location, error) {
		locs, issues := imp.enumerator.Roots(imp.scopeRoots(b), "")
		for _, issue := range issues {
			b.AddFailure(issue)
		}
		return locs, nil
	})
}

// scopeRoots are the ambient classpath roots, manifest-expanded, followed
// by the runtime modules. Unusable entries become issues on b.
func (imp *ClassFileImporter) scopeRoots(b *graph.Builder) []location.Root {
	roots, warnings := imp.classpath.Roots()
	for _, w := range warnings {
		imp.logger.Warn("skipping classpath entry", "error", w)
		b.AddFailure(w)
	}
	expanded, warnings := imp.expander.Expand(roots)
	for _, w := range warnings {
		b.AddFailure(w)
	}

	modules, err := imp.runtime.Roots()
	if err != nil {
		imp.logger.Warn("cannot list runtime modules", "dir", imp.runtime.Dir, "error", err)
		b.AddFailure(domainerrors.ClasspathWarning(imp.runtime.Dir, err))
	}
	return append(expanded, modules...)
}

func allRootsFailed(failures []error) error {
	if len(failures) == 1 {
		return failures[0]
	}
	code := domainerrors.CodeNotFound
	if c, ok := domainerrors.CodeOf(failures[0]); ok {
		code = c
	}
	return domainerrors.Wrap(errors.Join(failures...), code, fmt.Sprintf("none of %d import roots could be used", len(failures)))
}
