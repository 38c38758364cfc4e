package fileconv

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Source is a content reference handed to the engine by its caller. Name is
// a filename hint used for name-based detection and output naming; Open
// returns a fresh reader over the content each time it is called, or
// ErrNoContent when only a name is available.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource returns a Source backed by a local file. The file is only ever
// opened read-only.
func FileSource(path string) Source {
	return fileSource{path: path}
}

type fileSource struct {
	path string
}

func (s fileSource) Name() string {
	return s.path
}

func (s fileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

// BytesSource returns a Source over an in-memory buffer, for callers that
// hold content rather than a path (uploads, stdin, archive members).
func BytesSource(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

type bytesSource struct {
	name string
	data []byte
}

func (s bytesSource) Name() string {
	return s.name
}

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// NameSource returns a Source that only carries a filename. Detection falls
// back to the extension table and conversion fails with an I/O error.
func NameSource(name string) Source {
	return nameSource(name)
}

type nameSource string

func (s nameSource) Name() string {
	return string(s)
}

func (s nameSource) Open() (io.ReadCloser, error) {
	return nil, ErrNoContent
}

// localPath returns the filesystem path behind src, if it has one.
func localPath(src Source) (string, bool) {
	fs, ok := src.(fileSource)
	if !ok {
		return "", false
	}
	abs, err := filepath.Abs(fs.path)
	if err != nil {
		return fs.path, true
	}
	return abs, true
}
