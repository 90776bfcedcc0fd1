package util

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// HasPathPrefix reports whether path equals prefix or lies below it. Both
// are cleaned first; neither needs to exist.
func HasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(strings.TrimSpace(path))
	prefix = filepath.Clean(strings.TrimSpace(prefix))
	if path == "." || prefix == "." {
		return path == prefix
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, string(filepath.Separator))+string(filepath.Separator))
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WriteFileWithDirs creates parent directories (0755) and writes the file with perm.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}

// WriteJSONWithDirs writes v as indented JSON followed by a newline.
func WriteJSONWithDirs(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileWithDirs(path, append(data, '\n'), 0o644)
}
