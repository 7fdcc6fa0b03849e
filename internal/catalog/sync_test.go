package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/cardbox/internal/models"
	"github.com/starford/cardbox/internal/parser"
	"github.com/starford/cardbox/internal/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeCard(t *testing.T, files storage.Provider, c *models.Card) {
	t.Helper()
	data, err := parser.Format(c)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if err := files.Write(c.ID+storage.RecordExt, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func newFiles(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

func TestSync(t *testing.T) {
	dir, files := newFiles(t)
	db := testDB(t)

	a := models.NewCard("1", models.TypeIdea, "One", "b")
	a.Tags = []string{"go"}
	writeCard(t, files, a)
	writeCard(t, files, models.NewCard("2", models.TypeIdea, "Two", "b"))
	_ = os.WriteFile(filepath.Join(dir, "index.yaml"), []byte("'1': One\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "3.yaml"), []byte("not: [valid"), 0o644)
	_ = db.UpsertCard(row("99"), nil)

	if err := Sync(db, files, discard()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	sums, _ := db.AllChecksums()
	if len(sums) != 2 {
		t.Errorf("cataloged = %v, want cards 1 and 2", sums)
	}
	if _, ok := sums["99"]; ok {
		t.Error("stale card 99 was not removed")
	}
	if got, _ := db.FindByTags([]string{"go"}); len(got) != 1 || got[0] != "1" {
		t.Errorf("FindByTags(go) = %v", got)
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	_, files := newFiles(t)
	db := testDB(t)
	writeCard(t, files, models.NewCard("1", models.TypeIdea, "One", "b"))
	_ = Sync(db, files, discard())

	// Corrupt the cached title; an unchanged checksum means no re-read.
	_, _ = db.conn.Exec(`UPDATE cards SET title = 'cached' WHERE id = '1'`)
	_ = Sync(db, files, discard())

	var title string
	_ = db.conn.QueryRow(`SELECT title FROM cards WHERE id = '1'`).Scan(&title)
	if title != "cached" {
		t.Errorf("title = %q, unchanged file was re-indexed", title)
	}
}

func TestSync_RejectsMismatchedID(t *testing.T) {
	_, files := newFiles(t)
	db := testDB(t)
	c := models.NewCard("5", models.TypeIdea, "Five", "b")
	data, _ := parser.Format(c)
	_ = files.Write("6.yaml", data)

	_ = Sync(db, files, discard())
	if sums, _ := db.AllChecksums(); len(sums) != 0 {
		t.Errorf("cataloged = %v, want none", sums)
	}
}
