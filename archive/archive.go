// Package archive implements the in-memory ZIP builder that one bundle build
// writes into. Payload bytes live inside the builder until Finalize produces
// the downloadable blob; callers keep only Entry descriptors.
package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
)

// CompressionLevel is the fixed DEFLATE level applied to every compressed
// entry. Nested archives bypass it via AddStored.
const CompressionLevel = flate.BestCompression

// ErrDuplicateName is returned when a folder already holds a file with the
// requested name.
var ErrDuplicateName = errors.New("archive: duplicate filename in folder")

// Entry describes one artifact written into the archive. It does not own the
// artifact's bytes.
type Entry struct {
	// Type is a category tag such as "upload", "latex" or "metadata".
	Type string `json:"type"`
	// Filename is the entry name inside its folder.
	Filename string `json:"filename"`
	// Size is the uncompressed payload size in bytes.
	Size int64 `json:"size"`
	// Format is the MIME type when known.
	Format string `json:"format,omitempty"`
	// Binary marks payloads that are not text.
	Binary bool `json:"binary,omitempty"`
	// Nested marks payloads that are themselves archives and are stored
	// without recompression.
	Nested bool `json:"nested,omitempty"`
}

type file struct {
	name   string
	data   []byte
	stored bool
}

// Folder is a named directory inside the archive. Filenames are unique per
// folder; inserting a duplicate fails.
type Folder struct {
	name  string
	files []file
	seen  map[string]struct{}
}

// Name returns the folder's path segment.
func (f *Folder) Name() string { return f.name }

// Len reports how many files the folder holds.
func (f *Folder) Len() int { return len(f.files) }

// Add writes a DEFLATE-compressed file into the folder.
func (f *Folder) Add(name string, data []byte) error {
	return f.put(name, data, false)
}

// AddStored writes a file without compression. Used for nested archives,
// which must pass through byte-for-byte.
func (f *Folder) AddStored(name string, data []byte) error {
	return f.put(name, data, true)
}

func (f *Folder) put(name string, data []byte, stored bool) error {
	if name == "" {
		return errors.New("archive: empty filename")
	}
	if _, ok := f.seen[name]; ok {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateName, f.name, name)
	}
	f.seen[name] = struct{}{}
	f.files = append(f.files, file{name: name, data: data, stored: stored})
	return nil
}

// Has reports whether the folder already contains name.
func (f *Folder) Has(name string) bool {
	_, ok := f.seen[name]
	return ok
}

// Archive is the in-memory builder for one bundle. It is not safe for
// concurrent use; one build owns one Archive.
type Archive struct {
	folders []*Folder
	byName  map[string]*Folder
	root    []file
	rootSet map[string]struct{}
}

// New returns an empty archive.
func New() *Archive {
	return &Archive{
		byName:  make(map[string]*Folder),
		rootSet: make(map[string]struct{}),
	}
}

// Folder returns the named folder, creating it on first use. Folder order is
// creation order and is preserved in the final ZIP.
func (a *Archive) Folder(name string) *Folder {
	if f, ok := a.byName[name]; ok {
		return f
	}
	f := &Folder{name: name, seen: make(map[string]struct{})}
	a.folders = append(a.folders, f)
	a.byName[name] = f
	return f
}

// AddRoot writes a file at the archive root (for example README.txt).
func (a *Archive) AddRoot(name string, data []byte) error {
	if name == "" {
		return errors.New("archive: empty filename")
	}
	if _, ok := a.rootSet[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	a.rootSet[name] = struct{}{}
	a.root = append(a.root, file{name: name, data: data})
	return nil
}

// TotalFiles counts every file currently in the archive.
func (a *Archive) TotalFiles() int {
	n := len(a.root)
	for _, f := range a.folders {
		n += len(f.files)
	}
	return n
}

// Finalize compresses the tree into a ZIP blob. The archive remains usable
// afterwards, but one build is expected to finalize exactly once.
func (a *Archive) Finalize() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, CompressionLevel)
	})

	write := func(path string, fl file) error {
		method := uint16(zip.Deflate)
		if fl.stored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: path, Method: method})
		if err != nil {
			return fmt.Errorf("create entry %s: %w", path, err)
		}
		if _, err := w.Write(fl.data); err != nil {
			return fmt.Errorf("write entry %s: %w", path, err)
		}
		return nil
	}

	for _, f := range a.folders {
		for _, fl := range f.files {
			if err := write(f.name+"/"+fl.name, fl); err != nil {
				return nil, err
			}
		}
	}
	for _, fl := range a.root {
		if err := write(fl.name, fl); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
