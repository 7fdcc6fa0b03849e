package cardstore

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/lock"
	"github.com/starford/cardbox/internal/models"
	"github.com/starford/cardbox/internal/storage"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	locker, err := lock.NewFileLocker(filepath.Join(dir, ".locks"))
	if err != nil {
		t.Fatalf("NewFileLocker: %v", err)
	}
	return New(fs, locker), dir
}

func card(id, title string) *models.Card {
	c := models.NewCard(id, models.TypeIdea, title, "body of "+id)
	c.Date = "2024-05-01"
	return c
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newStore(t)
	want := card("1", "First")
	want.Tags = []string{"go"}
	if err := s.Create(want); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get("1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
	idx, _ := s.Index()
	if idx["1"] != "First" {
		t.Errorf("index title = %q, want %q", idx["1"], "First")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	s, _ := newStore(t)
	_ = s.Create(card("1", "First"))
	err := s.Create(card("1", "Again"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Get("1")
	if got.Title != "First" {
		t.Errorf("title = %q, duplicate create overwrote the card", got.Title)
	}
}

func TestCreate_Invalid(t *testing.T) {
	s, _ := newStore(t)
	bad := card("1", " ")
	if err := s.Create(bad); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if ok, _ := s.Exists("1"); ok {
		t.Error("invalid card was written")
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newStore(t)
	for _, id := range []string{"9", "index", "../x"} {
		if _, err := s.Get(id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Get(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestUpdate(t *testing.T) {
	s, _ := newStore(t)
	_ = s.Create(card("1", "First"))

	got, changed, err := s.Update("1", func(c *models.Card) (bool, error) {
		c.Title = "Renamed"
		return true, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !changed || got.Title != "Renamed" {
		t.Errorf("Update = %q, %v", got.Title, changed)
	}
	idx, _ := s.Index()
	if idx["1"] != "Renamed" {
		t.Errorf("index title = %q, want %q", idx["1"], "Renamed")
	}
}

func TestUpdate_NoChangeWritesNothing(t *testing.T) {
	s, dir := newStore(t)
	_ = s.Create(card("1", "First"))
	before, _ := os.Stat(filepath.Join(dir, "1.yaml"))

	_, changed, err := s.Update("1", func(*models.Card) (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if changed {
		t.Error("changed = true, want false")
	}
	after, _ := os.Stat(filepath.Join(dir, "1.yaml"))
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("unchanged card was rewritten")
	}
	backups, _ := filepath.Glob(filepath.Join(dir, "backups", "1_*.yaml"))
	if len(backups) != 0 {
		t.Errorf("unexpected backups %v", backups)
	}
}

func TestUpdate_ValidationLeavesCardUntouched(t *testing.T) {
	s, _ := newStore(t)
	_ = s.Create(card("1", "First"))
	_, _, err := s.Update("1", func(c *models.Card) (bool, error) {
		c.Title = "Changed"
		c.Body = ""
		return true, nil
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	got, _ := s.Get("1")
	if got.Title != "First" {
		t.Errorf("title = %q, want %q", got.Title, "First")
	}
}

func TestDelete(t *testing.T) {
	s, dir := newStore(t)
	_ = s.Create(card("1", "First"))
	if err := s.Delete("1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists("1"); ok {
		t.Error("card still exists")
	}
	idx, _ := s.Index()
	if _, ok := idx["1"]; ok {
		t.Error("index still lists the card")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "backups", "1_*.yaml"))
	if len(matches) != 1 {
		t.Errorf("backups = %v, want one", matches)
	}
	if err := s.Delete("1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestIDs_SkipsNonCards(t *testing.T) {
	s, dir := newStore(t)
	for _, id := range []string{"10", "2", "1.2", "1"} {
		if err := s.Create(card(id, "t"+id)); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("x: 1\n"), 0o644)

	ids, err := s.IDs()
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	want := []string{"1", "1.2", "2", "10"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("IDs = %v, want %v", ids, want)
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 4 || all[3].ID != "10" {
		t.Errorf("All returned %d cards", len(all))
	}
}

func TestReindex(t *testing.T) {
	s, dir := newStore(t)
	_ = s.Create(card("1", "One"))
	_ = s.Create(card("2", "Two"))
	_ = os.Remove(filepath.Join(dir, DefaultIndexFile))

	n, err := s.Reindex()
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	idx, _ := s.Index()
	if want := (models.Index{"1": "One", "2": "Two"}); !reflect.DeepEqual(idx, want) {
		t.Errorf("index = %v, want %v", idx, want)
	}
}
