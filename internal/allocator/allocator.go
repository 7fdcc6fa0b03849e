// Package allocator hands out collision-free card IDs.
package allocator

import (
	"fmt"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/cardid"
	"github.com/starford/cardbox/internal/lock"
)

// DefaultLockKey names the exclusive section shared by every allocation.
const DefaultLockKey = "index.yaml.lock"

// Catalog is the part of the card store the allocator scans.
type Catalog interface {
	IDs() ([]string, error)
	Exists(id string) (bool, error)
}

// Allocator derives the next free top-level or child ID.
type Allocator struct {
	cards  Catalog
	locker lock.Locker
	key    string
}

// New creates an Allocator. An empty key selects DefaultLockKey.
func New(cards Catalog, locker lock.Locker, key string) *Allocator {
	if key == "" {
		key = DefaultLockKey
	}
	return &Allocator{cards: cards, locker: locker, key: key}
}

// Next returns the next ID: max top-level + 1 without a parent, or
// parent.(max child + 1) with one. The ID is not reserved once Next returns;
// use Reserve to persist a card under the same section.
func (a *Allocator) Next(parent string) (string, error) {
	var id string
	err := a.locker.WithLock(a.key, func() error {
		var err error
		id, err = a.next(parent)
		return err
	})
	return id, err
}

// Reserve allocates the next ID and runs fn with it while still holding the
// allocation section, so no other allocator can hand out the same ID before
// fn has written the card.
func (a *Allocator) Reserve(parent string, fn func(id string) error) (string, error) {
	var id string
	err := a.locker.WithLock(a.key, func() error {
		var err error
		if id, err = a.next(parent); err != nil {
			return err
		}
		return fn(id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (a *Allocator) next(parent string) (string, error) {
	if parent != "" {
		if !cardid.Valid(parent) {
			return "", fmt.Errorf("allocator: parent %q: %w", parent, apperr.ErrValidation)
		}
		ok, err := a.cards.Exists(parent)
		if err != nil {
			return "", fmt.Errorf("allocator: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("allocator: parent card %s: %w", parent, apperr.ErrNotFound)
		}
	}
	ids, err := a.cards.IDs()
	if err != nil {
		return "", fmt.Errorf("allocator: %w", err)
	}
	if parent == "" {
		return cardid.NextTopLevel(ids), nil
	}
	return cardid.NextChild(parent, ids), nil
}
