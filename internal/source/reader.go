// Package source reads Huff files and resolves their include directives
// into the ordered file list a flattened unit is built from.
package source

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"huffdbg/internal/logging"
)

// DefaultCacheSize bounds the number of files a Reader keeps in memory.
const DefaultCacheSize = 256

// Unit is a source file path plus its raw text. Immutable once read.
type Unit struct {
	Path    string
	Content string
}

// ReadError reports a missing or unreadable source file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Reader reads source units, caching them by absolute path for the life of
// one session so a file included twice is read from disk once.
type Reader struct {
	cache *lru.Cache[string, Unit]
}

// NewReader creates a reader holding at most size units.
func NewReader(size int) (*Reader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Unit](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	return &Reader{cache: cache}, nil
}

// Read returns the unit at path. Failures are *ReadError.
func (r *Reader) Read(path string) (Unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Unit{}, &ReadError{Path: path, Err: err}
	}
	if u, ok := r.cache.Get(abs); ok {
		logging.SourceDebug("Cache hit: %s", abs)
		return u, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Unit{}, &ReadError{Path: abs, Err: err}
	}
	u := Unit{Path: abs, Content: string(data)}
	r.cache.Add(abs, u)
	logging.SourceDebug("Read %s (%d bytes)", abs, len(data))
	return u, nil
}

// Len returns the number of cached units.
func (r *Reader) Len() int {
	return r.cache.Len()
}
