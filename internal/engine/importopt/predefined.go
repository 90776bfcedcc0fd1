package importopt

import (
	"path"

	"archimport/internal/engine/location"

	"github.com/gobwas/glob"
)

// testLocationPatterns recognise the output directories and archives of
// test sources for Maven, Gradle, IntelliJ and Bazel layouts.
var testLocationPatterns = []glob.Glob{
	glob.MustCompile("**/target/test-classes/**", '/'),
	glob.MustCompile("**/build/classes/test/**", '/'),
	glob.MustCompile("**/build/classes/*/test/**", '/'),
	glob.MustCompile("**/build/classes/*/testFixtures/**", '/'),
	glob.MustCompile("**/out/test/**", '/'),
	glob.MustCompile("**/bin/test/**", '/'),
	glob.MustCompile("**/*-tests.jar!/**", '/'),
	glob.MustCompile("**/*_test.jar!/**", '/'),
	glob.MustCompile("**/*-test.jar!/**", '/'),
}

// IsTestLocation reports whether loc was compiled from test sources.
func IsTestLocation(loc location.Location) bool {
	return matchesAny(testLocationPatterns, loc)
}

var (
	// DoNotIncludeTests excludes locations compiled from test sources.
	DoNotIncludeTests ImportOption = Func(func(loc location.Location) bool {
		return !IsTestLocation(loc)
	})

	// OnlyIncludeTests keeps only locations compiled from test sources.
	OnlyIncludeTests ImportOption = Func(IsTestLocation)

	// DoNotIncludeJars excludes entries of jar/zip archives.
	DoNotIncludeJars ImportOption = Func(func(loc location.Location) bool {
		return !loc.IsJar()
	})

	// DoNotIncludeRuntimeModules excludes jrt:/ runtime-module entries.
	DoNotIncludeRuntimeModules ImportOption = Func(func(loc location.Location) bool {
		return !loc.IsModule()
	})

	// DoNotIncludeArchives excludes both archive entries and runtime-module entries.
	DoNotIncludeArchives ImportOption = Func(func(loc location.Location) bool {
		return !loc.IsArchive()
	})

	// DoNotIncludePackageInfos excludes package-info class files.
	DoNotIncludePackageInfos ImportOption = Func(func(loc location.Location) bool {
		return path.Base(loc.Resource()) != "package-info.class"
	})
)

// AmbientDefault is applied to an ambient classpath import that was given
// no options: archives and runtime modules are left out.
func AmbientDefault() Options {
	return New(DoNotIncludeArchives)
}

// Settings mirrors the [import] configuration surface.
type Settings struct {
	ExcludeTests          bool
	IncludeArchives       bool
	IncludeRuntimeModules bool
	ExcludeLocations      []string
}

// FromSettings returns the options every import applies.
func FromSettings(s Settings) (Options, error) {
	var opts Options
	if s.ExcludeTests {
		opts = opts.With(DoNotIncludeTests)
	}
	if len(s.ExcludeLocations) > 0 {
		exclude, err := ExcludePatterns(s.ExcludeLocations...)
		if err != nil {
			return Options{}, err
		}
		opts = opts.With(exclude)
	}
	return opts, nil
}

// AmbientFromSettings returns the options of an ambient classpath import
// that was given none. Archives and runtime modules are controlled
// separately so that either can be opted into.
func AmbientFromSettings(s Settings) Options {
	var opts Options
	if !s.IncludeArchives {
		opts = opts.With(DoNotIncludeJars)
	}
	if !s.IncludeRuntimeModules {
		opts = opts.With(DoNotIncludeRuntimeModules)
	}
	return opts
}
