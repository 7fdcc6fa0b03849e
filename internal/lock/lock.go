// Package lock provides named exclusive sections shared between processes.
//
// Every read-modify-write of a stored record runs inside WithLock keyed by the
// record's identity, so concurrent invocations of the tool serialize on the
// same resource while unrelated resources proceed independently.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Locker runs functions inside named exclusive sections.
type Locker interface {
	// WithLock blocks until the section named key is free, runs fn while
	// holding it and releases it on every exit path.
	WithLock(key string, fn func() error) error
}

// FileLocker implements Locker with one advisory lock file per key.
type FileLocker struct {
	dir string
}

// NewFileLocker creates a locker that keeps its lock files in dir.
func NewFileLocker(dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: create dir: %w", err)
	}
	return &FileLocker{dir: dir}, nil
}

// WithLock implements Locker.
func (l *FileLocker) WithLock(key string, fn func() error) error {
	f, err := os.OpenFile(l.path(key), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("lock: open %s: %w", key, err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	defer unlockFile(f) //nolint:errcheck // closing the descriptor releases it anyway

	return fn()
}

// path maps a key to a file name that is safe on every platform.
func (l *FileLocker) path(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
	if !strings.HasSuffix(name, ".lock") {
		name += ".lock"
	}
	return filepath.Join(l.dir, name)
}
