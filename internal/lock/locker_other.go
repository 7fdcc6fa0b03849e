//go:build !unix

package lock

import (
	"os"
	"sync"
)

// Without flock(2) the sections only exclude goroutines of this process.
var (
	mu   sync.Mutex
	held = map[string]*sync.Mutex{}
)

func sectionFor(f *os.File) *sync.Mutex {
	mu.Lock()
	defer mu.Unlock()
	m, ok := held[f.Name()]
	if !ok {
		m = &sync.Mutex{}
		held[f.Name()] = m
	}
	return m
}

func lockFile(f *os.File) error {
	sectionFor(f).Lock()
	return nil
}

func unlockFile(f *os.File) error {
	sectionFor(f).Unlock()
	return nil
}
