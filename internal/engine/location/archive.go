package location

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// jmodMagic prefixes .jmod files; the zip payload starts right after it.
var jmodMagic = []byte{'J', 'M', 0x01, 0x00}

const jmodClassesPrefix = "classes/"

// Archive is an open zip, jar or jmod file. Entries are indexed by name.
type Archive struct {
	path   string
	file   *os.File
	reader *zip.Reader
	jmod   bool
	index  map[string]*zip.File
}

// OpenArchive opens path as a zip archive, transparently skipping a jmod header.
func OpenArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	header := make([]byte, len(jmodMagic))
	n, _ := io.ReadFull(f, header)
	offset := int64(0)
	jmod := n == len(jmodMagic) && bytes.Equal(header, jmodMagic)
	if jmod {
		offset = int64(len(jmodMagic))
	}

	size := info.Size() - offset
	reader, err := zip.NewReader(io.NewSectionReader(f, offset, size), size)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}

	index := make(map[string]*zip.File, len(reader.File))
	for _, zf := range reader.File {
		index[zf.Name] = zf
	}
	return &Archive{path: path, file: f, reader: reader, jmod: jmod, index: index}, nil
}

func (a *Archive) Path() string { return a.path }

// IsJmod reports whether the archive carried a jmod header.
func (a *Archive) IsJmod() bool { return a.jmod }

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}

// Names returns all entry names in lexical order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.index))
	for name := range a.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Open opens a single entry. Safe for concurrent use.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	zf, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("entry %q not found in %s: %w", name, a.path, os.ErrNotExist)
	}
	return zf.Open()
}

// ReadEntry reads a whole entry into memory.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	rc, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// IsArchiveFile sniffs the first bytes of path for a zip or jmod signature.
func IsArchiveFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, jmodMagic) || (header[0] == 'P' && header[1] == 'K')
}

func hasArchiveExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".jar", ".zip", ".war", ".ear", ".jmod"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Opener reads Location bytes, keeping archives open for the lifetime of the
// Opener so that many entries of one archive share a handle. Close releases
// every handle. Safe for concurrent use.
type Opener struct {
	mu       sync.Mutex
	archives map[string]*Archive
	closed   bool
}

func NewOpener() *Opener {
	return &Opener{archives: make(map[string]*Archive)}
}

func (o *Opener) archive(path string) (*Archive, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, os.ErrClosed
	}
	if a, ok := o.archives[path]; ok {
		return a, nil
	}
	a, err := OpenArchive(path)
	if err != nil {
		return nil, err
	}
	o.archives[path] = a
	return a, nil
}

// Open returns a reader for the artifact addressed by loc.
func (o *Opener) Open(loc Location) (io.ReadCloser, error) {
	if loc.IsZero() {
		return nil, fmt.Errorf("open empty location: %w", os.ErrInvalid)
	}
	if !loc.packed {
		return os.Open(loc.Path())
	}
	a, err := o.archive(loc.container)
	if err != nil {
		return nil, err
	}
	return a.Open(loc.raw)
}

// ReadAll reads the complete artifact addressed by loc.
func (o *Opener) ReadAll(loc Location) ([]byte, error) {
	rc, err := o.Open(loc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	var firstErr error
	for path, a := range o.archives {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(o.archives, path)
	}
	return firstErr
}
