// Package launch persists the composed debug command and hands it to a
// terminal. The command goes through a file because a full hevm line with
// inline bytecode can exceed shell and terminal length limits.
package launch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"huffdbg/internal/logging"
)

// CacheFile is the per-session command file. Each session gets its own
// path, so concurrent sessions in one directory never share a file.
type CacheFile struct {
	mu        sync.Mutex
	path      string
	handedOff bool
	closed    bool
}

// NewCacheFile reserves the command file for sessionID inside dir. The
// file is not created until Write.
func NewCacheFile(dir, sessionID string) (*CacheFile, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, "huffdbg-"+sessionID+".cmd")
	logging.LaunchDebug("Reserved cache file %s", path)
	return &CacheFile{path: path}, nil
}

// Path returns the file location.
func (c *CacheFile) Path() string { return c.path }

// Write replaces the file content. The new content is written to a
// temporary file and renamed into place, so a reader sees either the old
// or the new command, never a partial one.
func (c *CacheFile) Write(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("cache file %s is closed", c.path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".huffdbg-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("failed to move command into %s: %w", c.path, err)
	}
	logging.LaunchDebug("Wrote %d bytes to %s", len(content), c.path)
	return nil
}

// Handoff marks the file as owned by a detached reader that removes it
// itself. Close then leaves it in place.
func (c *CacheFile) Handoff() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handedOff = true
}

// Close removes the file unless it was handed off. It is safe to call
// more than once and on a file that was never written.
func (c *CacheFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.handedOff {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", c.path, err)
	}
	return nil
}
