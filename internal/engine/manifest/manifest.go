// Package manifest reads archive manifests and expands Class-Path headers
// into additional classpath roots.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	domainerrors "archimport/internal/core/errors"
	"archimport/internal/engine/location"
)

// EntryName is where archives keep their manifest.
const EntryName = "META-INF/MANIFEST.MF"

// ClassPathAttribute names the classpath-extension header.
const ClassPathAttribute = "Class-Path"

// Manifest holds the main attributes of a manifest. Lookups ignore case.
type Manifest struct {
	attrs map[string]string
	order []string
}

// Parse reads the main section of a manifest. Continuation lines start with
// a single space and are appended to the previous line without it.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{attrs: make(map[string]string)}

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			// end of main section
			break
		}
		if strings.HasPrefix(line, " ") {
			if len(lines) == 0 {
				return nil, fmt.Errorf("continuation line without header: %q", line)
			}
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("malformed manifest header: %q", line)
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		key := strings.ToLower(name)
		if _, exists := m.attrs[key]; !exists {
			m.order = append(m.order, name)
		}
		m.attrs[key] = value
	}
	return m, nil
}

// Get returns the value of a main attribute.
func (m *Manifest) Get(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.attrs[strings.ToLower(name)]
	return v, ok
}

// Names returns attribute names in declaration order.
func (m *Manifest) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.order...)
}

// ClassPath returns the whitespace separated Class-Path entries.
func (m *Manifest) ClassPath() []string {
	v, ok := m.Get(ClassPathAttribute)
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// Read returns the manifest of the archive at path, or nil when it has none.
// Unreadable archives and malformed manifests yield a ManifestRead error.
func Read(archivePath string) (*Manifest, error) {
	a, err := location.OpenArchive(archivePath)
	if err != nil {
		return nil, domainerrors.ManifestRead(archivePath, err)
	}
	defer a.Close()

	if !a.Has(EntryName) {
		return nil, nil
	}
	data, err := a.ReadEntry(EntryName)
	if err != nil {
		return nil, domainerrors.ManifestRead(archivePath, err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, domainerrors.ManifestRead(archivePath, err)
	}
	return m, nil
}

// ResolveEntry resolves a Class-Path entry against the directory holding the
// declaring archive. Entries may be relative paths or file: URLs.
func ResolveEntry(archivePath, entry string) (string, error) {
	if strings.HasPrefix(entry, "file:") {
		u, err := url.Parse(entry)
		if err != nil {
			return "", err
		}
		return filepath.Clean(filepath.FromSlash(u.Path)), nil
	}
	if unescaped, err := url.PathUnescape(entry); err == nil {
		entry = unescaped
	}
	p := filepath.FromSlash(entry)
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Join(filepath.Dir(archivePath), p), nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
