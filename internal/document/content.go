package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Provider supplies document content. Providers may be shared by many
// documents and must tolerate concurrent Open calls.
type Provider interface {
	Open() (io.ReadCloser, error)
	Len() int64
}

// Releaser is implemented by providers holding resources that must be freed
// once no document references them.
type Releaser interface {
	Release() error
}

// BytesContent is an in-memory provider.
type BytesContent []byte

func (b BytesContent) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (b BytesContent) Len() int64 { return int64(len(b)) }

// FileContent streams an existing file. The file is owned by the caller and is
// never removed.
type FileContent struct {
	Path string
	size int64
}

// NewFileContent stats path and returns a provider for it.
func NewFileContent(path string) (*FileContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat content file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("content path %s is a directory", path)
	}
	return &FileContent{Path: path, size: info.Size()}, nil
}

func (f *FileContent) Open() (io.ReadCloser, error) {
	// #nosec G304 -- path comes from the input file system walk
	return os.Open(f.Path)
}

func (f *FileContent) Len() int64 { return f.size }

// TempFileContent holds content spilled to a temporary file. The file is
// removed on Release.
type TempFileContent struct {
	path string
	size int64

	mu       sync.Mutex
	released bool
}

// NewTempFileContent copies r into a new temp file under dir.
func NewTempFileContent(dir string, r io.Reader) (*TempFileContent, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	f, err := os.CreateTemp(dir, "sitepipe-content-*")
	if err != nil {
		return nil, fmt.Errorf("create temp content: %w", err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(f.Name())
		if copyErr != nil {
			return nil, fmt.Errorf("write temp content: %w", copyErr)
		}
		return nil, fmt.Errorf("close temp content: %w", closeErr)
	}
	return &TempFileContent{path: f.Name(), size: n}, nil
}

// Path returns the backing file path.
func (t *TempFileContent) Path() string { return t.path }

func (t *TempFileContent) Open() (io.ReadCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil, fmt.Errorf("content %s already released", t.path)
	}
	return os.Open(t.path)
}

func (t *TempFileContent) Len() int64 { return t.size }

func (t *TempFileContent) Release() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	t.released = true
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp content: %w", err)
	}
	return nil
}

// sharedContent counts the documents referencing a provider.
type sharedContent struct {
	p    Provider
	refs atomic.Int64
}

func share(p Provider) *sharedContent {
	s := &sharedContent{p: p}
	s.refs.Store(1)
	return s
}

func (s *sharedContent) retain() *sharedContent {
	s.refs.Add(1)
	return s
}

func (s *sharedContent) release() error {
	if s.refs.Add(-1) != 0 {
		return nil
	}
	if r, ok := s.p.(Releaser); ok {
		return r.Release()
	}
	return nil
}

var emptyContent Provider = BytesContent(nil)
