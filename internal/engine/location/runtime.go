package location

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RuntimeModules exposes platform-provided classes the way a jrt:/ file
// system does. Dir is either an exploded module tree
// (<Dir>/<module>/<package path>/X.class) or a directory of .jmod files.
type RuntimeModules struct {
	Dir string
}

// DiscoverRuntimeModules prefers an explicit modules directory and falls back
// to $JAVA_HOME/jmods. The zero value exposes nothing.
func DiscoverRuntimeModules(modulesDir, javaHome string) RuntimeModules {
	if strings.TrimSpace(modulesDir) != "" {
		return RuntimeModules{Dir: modulesDir}
	}
	if strings.TrimSpace(javaHome) == "" {
		javaHome = os.Getenv("JAVA_HOME")
	}
	if strings.TrimSpace(javaHome) == "" {
		return RuntimeModules{}
	}
	jmods := filepath.Join(javaHome, "jmods")
	if info, err := os.Stat(jmods); err == nil && info.IsDir() {
		return RuntimeModules{Dir: jmods}
	}
	return RuntimeModules{}
}

func (r RuntimeModules) Enabled() bool { return strings.TrimSpace(r.Dir) != "" }

// Roots lists one root per module, sorted by module name. A missing
// directory yields no roots.
func (r RuntimeModules) Roots() ([]Root, error) {
	if !r.Enabled() {
		return nil, nil
	}
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var roots []Root
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(r.Dir, name)
		switch {
		case entry.IsDir():
			roots = append(roots, Root{Path: full, Kind: KindModule, Module: name})
		case strings.HasSuffix(strings.ToLower(name), ".jmod"):
			roots = append(roots, Root{Path: full, Kind: KindModule, Module: strings.TrimSuffix(name, filepath.Ext(name))})
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Module < roots[j].Module })
	return roots, nil
}
