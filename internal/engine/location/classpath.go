package location

import (
	"os"
	"path/filepath"
	"strings"

	domainerrors "archimport/internal/core/errors"
)

// DefaultClasspathEnv is the environment variable holding the ambient classpath.
const DefaultClasspathEnv = "CLASSPATH"

// Classpath is an ordered list of classpath entries as declared.
type Classpath struct {
	Entries []string
}

// ParseClasspath splits a declaration on the OS path list separator,
// dropping empty entries.
func ParseClasspath(decl string) Classpath {
	var entries []string
	for _, entry := range filepath.SplitList(decl) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return Classpath{Entries: entries}
}

// ClasspathFromEnv reads the classpath declared in the named environment
// variable, falling back to DefaultClasspathEnv.
func ClasspathFromEnv(name string) Classpath {
	if strings.TrimSpace(name) == "" {
		name = DefaultClasspathEnv
	}
	return ParseClasspath(os.Getenv(name))
}

// Roots classifies every entry. Entries that do not exist are skipped and
// reported as warnings; the classpath as a whole never fails.
func (c Classpath) Roots() ([]Root, []error) {
	var (
		roots    []Root
		warnings []error
	)
	seen := make(map[string]bool, len(c.Entries))
	for _, entry := range c.Entries {
		root, err := RootFor(entry)
		if err != nil {
			warnings = append(warnings, domainerrors.ClasspathWarning(entry, err))
			continue
		}
		if seen[root.Path] {
			continue
		}
		seen[root.Path] = true
		roots = append(roots, root)
	}
	return roots, warnings
}

func (c Classpath) String() string {
	return strings.Join(c.Entries, string(os.PathListSeparator))
}
