// Package importopt decides which class locations take part in an import.
package importopt

import (
	"fmt"
	"strings"

	"archimport/internal/engine/location"

	"github.com/gobwas/glob"
)

// ImportOption is a predicate over locations. A location is imported only if
// every option includes it.
type ImportOption interface {
	Includes(loc location.Location) bool
}

// Func adapts a plain function to ImportOption.
type Func func(loc location.Location) bool

func (f Func) Includes(loc location.Location) bool { return f(loc) }

// Options is an ordered, immutable conjunction of ImportOptions.
type Options struct {
	opts []ImportOption
}

// New combines opts; nil entries are dropped.
func New(opts ...ImportOption) Options {
	return Options{}.With(opts...)
}

// With returns a copy extended by opts.
func (o Options) With(opts ...ImportOption) Options {
	next := make([]ImportOption, 0, len(o.opts)+len(opts))
	next = append(next, o.opts...)
	for _, opt := range opts {
		if opt != nil {
			next = append(next, opt)
		}
	}
	return Options{opts: next}
}

// Merge returns o followed by the options of other.
func (o Options) Merge(other Options) Options {
	return o.With(other.opts...)
}

func (o Options) Len() int { return len(o.opts) }

func (o Options) IsEmpty() bool { return len(o.opts) == 0 }

// Includes is true iff every option includes loc. No options include everything.
func (o Options) Includes(loc location.Location) bool {
	for _, opt := range o.opts {
		if !opt.Includes(loc) {
			return false
		}
	}
	return true
}

// Filter keeps the locations o includes, preserving order.
func (o Options) Filter(locs []location.Location) (kept []location.Location, excluded int) {
	kept = make([]location.Location, 0, len(locs))
	for _, loc := range locs {
		if o.Includes(loc) {
			kept = append(kept, loc)
			continue
		}
		excluded++
	}
	return kept, excluded
}

// compilePatterns compiles URI globs with '/' as separator, so "*" stays
// within one path segment and "**" crosses segments.
func compilePatterns(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid location pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func matchesAny(globs []glob.Glob, loc location.Location) bool {
	for _, g := range globs {
		if loc.Matches(g) {
			return true
		}
	}
	return false
}

// ExcludePatterns rejects locations whose URI matches any of the globs.
func ExcludePatterns(patterns ...string) (ImportOption, error) {
	globs, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return Func(func(loc location.Location) bool {
		return !matchesAny(globs, loc)
	}), nil
}

// IncludePatterns accepts only locations whose URI matches one of the globs.
// No patterns accept everything.
func IncludePatterns(patterns ...string) (ImportOption, error) {
	globs, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return Func(func(loc location.Location) bool {
		return len(globs) == 0 || matchesAny(globs, loc)
	}), nil
}

// OnlyModules accepts runtime-module locations of the named modules and
// passes every other location through.
func OnlyModules(modules ...string) ImportOption {
	allowed := make(map[string]bool, len(modules))
	for _, m := range modules {
		allowed[strings.TrimSpace(m)] = true
	}
	return Func(func(loc location.Location) bool {
		return !loc.IsModule() || allowed[loc.Module()]
	})
}
