package lock

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

func TestWithLock_Serializes(t *testing.T) {
	l, err := NewFileLocker(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileLocker: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock("card:7", func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithLock: %v", err)
			}
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
}

func TestWithLock_ReleasedOnError(t *testing.T) {
	l, _ := NewFileLocker(t.TempDir())
	boom := errors.New("boom")
	if err := l.WithLock("index", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	done := make(chan struct{})
	go func() {
		_ = l.WithLock("index", func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released after a failing section")
	}
}

func TestPathSanitized(t *testing.T) {
	dir := t.TempDir()
	l, _ := NewFileLocker(dir)
	if err := l.WithLock("card:7/../x", func() error { return nil }); err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "card_7_.._x.lock" {
		t.Errorf("lock files = %v", entries)
	}
	if got := l.path("index.yaml.lock"); got != dir+string(os.PathSeparator)+"index.yaml.lock" {
		t.Errorf("path = %q", got)
	}
}
