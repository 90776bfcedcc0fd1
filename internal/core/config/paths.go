package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvedPaths are the file system locations of a configuration, made
// absolute against its base directory.
type ResolvedPaths struct {
	BaseDir          string
	SnapshotPath     string
	ModulesRoot      string
	JavaHome         string
	ClasspathEntries []string
}

// ResolvePaths anchors relative paths of cfg at base, usually the directory
// holding the configuration file.
func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return ResolvedPaths{}, err
	}

	resolved := ResolvedPaths{
		BaseDir:      filepath.Clean(base),
		SnapshotPath: ResolveRelative(base, cfg.Snapshot.Path),
	}
	if cfg.Runtime.ModulesRoot != "" {
		resolved.ModulesRoot = ResolveRelative(base, cfg.Runtime.ModulesRoot)
	}
	if cfg.Runtime.JavaHome != "" {
		resolved.JavaHome = ResolveRelative(base, cfg.Runtime.JavaHome)
	}
	for _, entry := range cfg.Classpath.Entries {
		resolved.ClasspathEntries = append(resolved.ClasspathEntries, ResolveRelative(base, entry))
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate until it finds a build
// marker and falls back to the working directory.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFile,
		"pom.xml",
		"build.gradle",
		"build.gradle.kts",
		"WORKSPACE",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
