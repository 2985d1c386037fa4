package source

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileSystem abstracts single-file access, enabling sources to be tested
// against in-memory content while production code reads from disk.
type FileSystem interface {
	// Open opens the file at path for reading.
	Open(path string) (io.ReadCloser, error)

	// Stat returns file metadata for the given path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFileSystem implements FileSystem on the operating system.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OS filesystem.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (*OSFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (*OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// MemFileSystem is an in-memory FileSystem for tests.
type MemFileSystem struct {
	files map[string][]byte
}

// NewMemFileSystem creates an empty in-memory filesystem.
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{files: make(map[string][]byte)}
}

// Add registers file content under the given path, replacing any previous
// content.
func (m *MemFileSystem) Add(path string, content []byte) {
	m.files[path] = content
}

func (m *MemFileSystem) Open(path string) (io.ReadCloser, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MemFileSystem) Stat(path string) (fs.FileInfo, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return memFileInfo{name: filepath.Base(path), size: int64(len(content))}, nil
}

// memFileInfo implements fs.FileInfo for in-memory files.
type memFileInfo struct {
	name string
	size int64
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() any           { return nil }

// Verify interface compliance at compile time
var (
	_ FileSystem = (*OSFileSystem)(nil)
	_ FileSystem = (*MemFileSystem)(nil)
)
