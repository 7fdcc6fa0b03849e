// Package testutil provides shared test helpers for setting up card stores
// and catalogs.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/cardbox/internal/allocator"
	"github.com/starford/cardbox/internal/cardstore"
	"github.com/starford/cardbox/internal/catalog"
	"github.com/starford/cardbox/internal/lock"
	"github.com/starford/cardbox/internal/models"
	"github.com/starford/cardbox/internal/storage"
)

// Env is a card store rooted in a temporary directory.
type Env struct {
	Root   string
	Files  *storage.FS
	Locker *lock.FileLocker
	Store  *cardstore.Store
	Alloc  *allocator.Allocator
}

// TestEnv creates an empty card store that is removed after the test.
func TestEnv(t *testing.T) *Env {
	t.Helper()
	root := t.TempDir()
	files, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	locker, err := lock.NewFileLocker(filepath.Join(root, ".locks"))
	if err != nil {
		t.Fatal(err)
	}
	store := cardstore.New(files, locker)
	return &Env{
		Root:   root,
		Files:  files,
		Locker: locker,
		Store:  store,
		Alloc:  allocator.New(store, locker, ""),
	}
}

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "cards-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Card returns a valid idea card with the given ID and title.
func Card(id, title string) *models.Card {
	c := models.NewCard(id, models.TypeIdea, title, "Body of "+id)
	c.Date = "2024-05-01"
	return c
}

// Seed stores cards directly, bypassing link reciprocation.
func (e *Env) Seed(t *testing.T, cards ...*models.Card) {
	t.Helper()
	for _, c := range cards {
		if err := e.Store.Create(c); err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}
}
