package manifest

import (
	"fmt"
	"log/slog"
	"os"

	"archimport/internal/engine/location"
	"archimport/internal/shared/observability"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 512

type cacheEntry struct {
	manifest *Manifest
	err      error
}

// Expander follows Class-Path headers of archive roots to a fixed point.
// Parsed manifests are cached by path, modification time and size, so
// repeated imports of the same classpath read every manifest once.
type Expander struct {
	logger *slog.Logger
	cache  *lru.Cache[string, cacheEntry]
}

func NewExpander(logger *slog.Logger, cacheSize int) (*Expander, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create manifest cache: %w", err)
	}
	return &Expander{logger: logger, cache: cache}, nil
}

// Expand returns roots followed by every root reachable through manifest
// Class-Path entries, in breadth-first discovery order. Each archive is
// expanded at most once. Manifest problems are returned as warnings and
// treated as "no extension".
func (e *Expander) Expand(roots []location.Root) ([]location.Root, []error) {
	var (
		result   []location.Root
		warnings []error
	)
	visited := make(map[string]bool, len(roots))
	queue := append([]location.Root(nil), roots...)

	for len(queue) > 0 {
		root := queue[0]
		queue = queue[1:]
		if visited[root.Path] {
			continue
		}
		visited[root.Path] = true
		result = append(result, root)

		if root.Kind != location.KindArchive {
			continue
		}

		m, err := e.manifest(root.Path)
		if err != nil {
			e.logger.Warn("ignoring unreadable manifest", "archive", root.Path, "error", err)
			warnings = append(warnings, err)
			continue
		}
		for _, entry := range m.ClassPath() {
			resolved, err := ResolveEntry(root.Path, entry)
			if err != nil {
				e.logger.Debug("ignoring malformed Class-Path entry", "archive", root.Path, "entry", entry, "error", err)
				continue
			}
			if visited[resolved] || !exists(resolved) {
				continue
			}
			next, err := location.RootFor(resolved)
			if err != nil {
				continue
			}
			observability.ManifestExpansions.Inc()
			e.logger.Debug("expanding manifest classpath", "archive", root.Path, "entry", next.Path)
			queue = append(queue, next)
		}
	}
	return result, warnings
}

func (e *Expander) manifest(path string) (*Manifest, error) {
	key := path
	if info, err := os.Stat(path); err == nil {
		key = fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	}
	if cached, ok := e.cache.Get(key); ok {
		return cached.manifest, cached.err
	}
	m, err := Read(path)
	e.cache.Add(key, cacheEntry{manifest: m, err: err})
	return m, err
}
