// Package cardstore is the typed record store: one YAML file per card plus
// the ID → title index, every read-modify-write inside an exclusive section.
package cardstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/cardid"
	"github.com/starford/cardbox/internal/lock"
	"github.com/starford/cardbox/internal/models"
	"github.com/starford/cardbox/internal/parser"
	"github.com/starford/cardbox/internal/storage"
)

// DefaultIndexFile is the name of the ID → title index.
const DefaultIndexFile = "index.yaml"

const indexKey = "index"

// Store reads and writes cards through a storage.Provider.
type Store struct {
	files     storage.Provider
	locker    lock.Locker
	indexFile string
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIndexFile overrides the index file name.
func WithIndexFile(name string) Option {
	return func(s *Store) { s.indexFile = name }
}

// WithLogger sets the logger used for index maintenance messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store.
func New(files storage.Provider, locker lock.Locker, opts ...Option) *Store {
	s := &Store{
		files:     files,
		locker:    locker,
		indexFile: DefaultIndexFile,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexFile returns the index file name relative to the store root.
func (s *Store) IndexFile() string { return s.indexFile }

func fileName(id string) string { return id + storage.RecordExt }

func cardKey(id string) string { return "card:" + id }

// Get loads a card. Unknown or malformed IDs yield ErrNotFound.
func (s *Store) Get(id string) (*models.Card, error) {
	if !cardid.Valid(id) {
		return nil, fmt.Errorf("cardstore: card %s: %w", id, apperr.ErrNotFound)
	}
	return s.read(id)
}

func (s *Store) read(id string) (*models.Card, error) {
	data, err := s.files.Read(fileName(id))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("cardstore: card %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardstore: read %s: %w", id, err)
	}
	card, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("cardstore: card %s: %w", id, err)
	}
	return card, nil
}

// Exists reports whether a card file is stored under id.
func (s *Store) Exists(id string) (bool, error) {
	if !cardid.Valid(id) {
		return false, nil
	}
	ok, err := s.files.Exists(fileName(id))
	if err != nil {
		return false, fmt.Errorf("cardstore: %w", err)
	}
	return ok, nil
}

// Create persists a new card. An existing card with the same ID yields
// ErrAlreadyExists.
func (s *Store) Create(card *models.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	err := s.locker.WithLock(cardKey(card.ID), func() error {
		ok, err := s.files.Exists(fileName(card.ID))
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("cardstore: card %s: %w", card.ID, apperr.ErrAlreadyExists)
		}
		return s.write(card)
	})
	if err != nil {
		return err
	}
	return s.setTitle(card.ID, card.Title)
}

// Put validates and overwrites a card, then refreshes its index entry.
func (s *Store) Put(card *models.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	if err := s.locker.WithLock(cardKey(card.ID), func() error { return s.write(card) }); err != nil {
		return err
	}
	return s.setTitle(card.ID, card.Title)
}

func (s *Store) write(card *models.Card) error {
	data, err := parser.Format(card)
	if err != nil {
		return fmt.Errorf("cardstore: encode %s: %w", card.ID, err)
	}
	if err := s.files.Write(fileName(card.ID), data); err != nil {
		return fmt.Errorf("cardstore: write %s: %w", card.ID, err)
	}
	return nil
}

// Update runs fn on a copy of the stored card inside the card's exclusive
// section. fn reports whether it changed anything; an unchanged card is not
// written. The proposed card is validated before the write, so a failing
// update leaves the stored card untouched.
func (s *Store) Update(id string, fn func(*models.Card) (bool, error)) (*models.Card, bool, error) {
	if !cardid.Valid(id) {
		return nil, false, fmt.Errorf("cardstore: card %s: %w", id, apperr.ErrNotFound)
	}
	var (
		result       *models.Card
		changed      bool
		titleChanged bool
	)
	err := s.locker.WithLock(cardKey(id), func() error {
		current, err := s.read(id)
		if err != nil {
			return err
		}
		proposed := current.Clone()
		changed, err = fn(proposed)
		if err != nil {
			return err
		}
		if !changed {
			result = current
			return nil
		}
		if err := proposed.Validate(); err != nil {
			return err
		}
		if err := s.write(proposed); err != nil {
			return err
		}
		result = proposed
		titleChanged = proposed.Title != current.Title
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if titleChanged {
		if err := s.setTitle(id, result.Title); err != nil {
			return nil, false, err
		}
	}
	return result, changed, nil
}

// Delete removes a card and its index entry. The file is backed up first.
func (s *Store) Delete(id string) error {
	if !cardid.Valid(id) {
		return fmt.Errorf("cardstore: card %s: %w", id, apperr.ErrNotFound)
	}
	err := s.locker.WithLock(cardKey(id), func() error {
		err := s.files.Delete(fileName(id))
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("cardstore: card %s: %w", id, apperr.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return err
	}
	return s.UpdateIndex(func(idx models.Index) bool {
		if _, ok := idx[id]; !ok {
			return false
		}
		delete(idx, id)
		return true
	})
}

// IDs returns the IDs of every stored card in natural order. The index file,
// backups, lock files and anything else not named like a card are skipped.
func (s *Store) IDs() ([]string, error) {
	items, err := s.files.List()
	if err != nil {
		return nil, fmt.Errorf("cardstore: %w", err)
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if cardid.Valid(it.ID) {
			ids = append(ids, it.ID)
		}
	}
	cardid.Sort(ids)
	return ids, nil
}

// All loads every card in natural ID order.
func (s *Store) All() ([]*models.Card, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}
	cards := make([]*models.Card, 0, len(ids))
	for _, id := range ids {
		c, err := s.read(id)
		if errors.Is(err, apperr.ErrNotFound) {
			// Removed between listing and reading.
			continue
		}
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// Index loads the ID → title index. A missing index is empty.
func (s *Store) Index() (models.Index, error) {
	data, err := s.files.Read(s.indexFile)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cardstore: read index: %w", err)
	}
	idx, err := parser.ParseIndex(data)
	if err != nil {
		return nil, fmt.Errorf("cardstore: %w", err)
	}
	return idx, nil
}

// UpdateIndex runs fn on the index inside the index exclusive section and
// writes it back when fn reports a change.
func (s *Store) UpdateIndex(fn func(models.Index) bool) error {
	return s.locker.WithLock(indexKey, func() error {
		idx, err := s.Index()
		if err != nil {
			return err
		}
		if !fn(idx) {
			return nil
		}
		data, err := parser.FormatIndex(idx)
		if err != nil {
			return fmt.Errorf("cardstore: encode index: %w", err)
		}
		if err := s.files.Write(s.indexFile, data); err != nil {
			return fmt.Errorf("cardstore: write index: %w", err)
		}
		return nil
	})
}

func (s *Store) setTitle(id, title string) error {
	return s.UpdateIndex(func(idx models.Index) bool {
		if cur, ok := idx[id]; ok && cur == title {
			return false
		}
		idx[id] = title
		return true
	})
}

// Reindex rebuilds the index from the stored cards and returns the number
// of entries.
func (s *Store) Reindex() (int, error) {
	cards, err := s.All()
	if err != nil {
		return 0, err
	}
	n := 0
	err = s.UpdateIndex(func(idx models.Index) bool {
		for k := range idx {
			delete(idx, k)
		}
		for _, c := range cards {
			idx[c.ID] = c.Title
		}
		n = len(idx)
		return true
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("cardstore: index rebuilt", slog.Int("cards", n))
	return n, nil
}
