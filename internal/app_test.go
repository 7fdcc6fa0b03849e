package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/cardbox/internal/cardservice"
	"github.com/starford/cardbox/internal/models"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "cards")
	return cfg
}

func TestOpen_RequiresConfig(t *testing.T) {
	if _, err := Open(); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestOpen_CreatesLayout(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer
	app, err := Open(WithConfig(cfg), WithLogOutput(&logs))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { app.Close() })

	for _, p := range []string{cfg.Store.Path, cfg.Backup.Dir, cfg.LockDir(), cfg.Catalog.Path} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Limit = 0
	if _, err := Open(WithConfig(cfg)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestOpen_SyncsCatalog(t *testing.T) {
	cfg := testConfig(t)
	app, err := Open(WithConfig(cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = app.Cards.Register(context.Background(), cardservice.Registration{
		Type: models.TypeIdea, Title: "One", Body: "b", Tags: []string{"go"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	app.Close()

	// A fresh catalog is rebuilt from the card files.
	_ = os.Remove(cfg.Catalog.Path)
	app, err = Open(WithConfig(cfg))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer app.Close()
	found, err := app.Cards.Find(context.Background(), []string{"go"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 1 || found[0] != "1" {
		t.Errorf("Find = %v, want [1]", found)
	}
}

func TestWatch_IndexesHandEditsUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	app, err := Open(WithConfig(cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var events []string
	done := make(chan error, 1)
	go func() {
		done <- app.Watch(ctx, func(kind, id string) {
			mu.Lock()
			events = append(events, kind+":"+id)
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	card := "ID: '3'\nDate: '2024-05-01'\nType: idea\nTitle: Three\nBody: text\nTags: [x]\n"
	if err := os.WriteFile(filepath.Join(cfg.Store.Path, "3.yaml"), []byte(card), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		found, _ := app.Catalog.FindByTags([]string{"x"})
		if len(found) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("hand-written card not cataloged")
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Error("no watch events reported")
	}
}
