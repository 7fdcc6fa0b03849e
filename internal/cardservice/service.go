// Package cardservice applies the card mutation rules on top of the card
// store: registration with allocated IDs, field updates, symmetric links,
// sequence pointers and deletion.
package cardservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/cardbox/internal/allocator"
	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/cardid"
	"github.com/starford/cardbox/internal/cardstore"
	"github.com/starford/cardbox/internal/catalog"
	"github.com/starford/cardbox/internal/graph"
	"github.com/starford/cardbox/internal/models"
)

// Registration describes a card to create. ID and Parent are mutually
// exclusive; with neither, the next top-level ID is allocated.
type Registration struct {
	ID       string
	Parent   string
	Type     models.CardType
	Title    string
	Summary  string
	Tags     []string
	Links    []string
	Sequence string
	Context  string
	Next     string
	Body     string
}

// Service coordinates the card store, the allocator and the catalog.
type Service struct {
	store   *cardstore.Store
	alloc   *allocator.Allocator
	catalog catalog.CardIndex
	logger  *slog.Logger
}

// NewService creates a new card service. cat may be nil, in which case tag
// lookups and backlinks scan the store.
func NewService(store *cardstore.Store, alloc *allocator.Allocator, cat catalog.CardIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, alloc: alloc, catalog: cat, logger: logger}
}

// NextID returns the ID the next registration under parent would receive.
func (s *Service) NextID(_ context.Context, parent string) (string, error) {
	return s.alloc.Next(parent)
}

// Get returns one card.
func (s *Service) Get(_ context.Context, id string) (*models.Card, error) {
	return s.store.Get(id)
}

// List returns every card in natural ID order.
func (s *Service) List(_ context.Context) ([]*models.Card, error) {
	return s.store.All()
}

// Graph builds a graph from the current cards.
func (s *Service) Graph(_ context.Context) (*graph.Graph, error) {
	cards, err := s.store.All()
	if err != nil {
		return nil, err
	}
	return graph.Build(cards), nil
}

// Register creates a card and returns it. Links are reciprocated on their
// targets, which must exist, as must a sequence target.
func (s *Service) Register(_ context.Context, r Registration) (*models.Card, error) {
	if r.ID != "" && r.Parent != "" {
		return nil, fmt.Errorf("cannot supply both an ID and a parent: %w", apperr.ErrValidation)
	}
	if strings.TrimSpace(r.Title) == "" {
		return nil, fmt.Errorf("title cannot be empty: %w", apperr.ErrValidation)
	}
	if strings.TrimSpace(r.Body) == "" {
		return nil, fmt.Errorf("body cannot be empty: %w", apperr.ErrValidation)
	}
	if _, err := models.ParseCardType(string(r.Type)); err != nil {
		return nil, err
	}
	if r.ID != "" && slices.Contains(r.Links, r.ID) {
		return nil, fmt.Errorf("cannot link card %s to itself: %w", r.ID, apperr.ErrValidation)
	}
	if err := s.requireAll(uniq(r.Links)); err != nil {
		return nil, err
	}
	if r.Sequence != "" {
		if err := s.requireAll([]string{r.Sequence}); err != nil {
			return nil, err
		}
	}

	build := func(id string) (*models.Card, error) {
		c := models.NewCard(id, r.Type, strings.TrimSpace(r.Title), r.Body)
		c.Summary = strings.TrimSpace(r.Summary)
		c.Tags = uniq(r.Tags)
		c.Links = uniq(r.Links)
		c.SequenceNext = r.Sequence
		c.Context = strings.TrimSpace(r.Context)
		c.Next = strings.TrimSpace(r.Next)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	var card *models.Card
	if r.ID != "" {
		c, err := s.registerExplicit(r.ID, build)
		if err != nil {
			return nil, err
		}
		card = c
	} else {
		_, err := s.alloc.Reserve(r.Parent, func(id string) error {
			c, err := build(id)
			if err != nil {
				return err
			}
			if err := s.store.Create(c); err != nil {
				return err
			}
			card = c
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("cardservice: registered", slog.String("card", card.ID))
	s.index(card)
	for _, target := range card.Links {
		if err := s.addLink(target, card.ID); err != nil {
			return card, err
		}
	}
	return card, nil
}

func (s *Service) registerExplicit(id string, build func(string) (*models.Card, error)) (*models.Card, error) {
	if !cardid.Valid(id) {
		return nil, fmt.Errorf("%q is not a card id: %w", id, apperr.ErrValidation)
	}
	if parent, ok := cardid.Parent(id); ok {
		exists, err := s.store.Exists(parent)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("parent card %s: %w", parent, apperr.ErrNotFound)
		}
	}
	idx, err := s.store.Index()
	if err != nil {
		return nil, err
	}
	if _, ok := idx[id]; ok {
		return nil, fmt.Errorf("card %s: %w", id, apperr.ErrAlreadyExists)
	}
	c, err := build(id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies ch to the card and reports whether anything changed. Added
// and removed links are mirrored on the target cards.
func (s *Service) Update(_ context.Context, id string, ch Changes) (*models.Card, bool, error) {
	ch.AddLinks = uniq(ch.AddLinks)
	if slices.Contains(ch.AddLinks, id) {
		return nil, false, fmt.Errorf("cannot link card %s to itself: %w", id, apperr.ErrValidation)
	}
	if err := s.requireAll(ch.AddLinks); err != nil {
		return nil, false, err
	}
	if ch.Sequence != nil && *ch.Sequence != "" {
		if *ch.Sequence == id {
			return nil, false, fmt.Errorf("card %s cannot follow itself: %w", id, apperr.ErrValidation)
		}
		if err := s.requireAll([]string{*ch.Sequence}); err != nil {
			return nil, false, err
		}
	}

	var before *models.Card
	card, changed, err := s.store.Update(id, func(c *models.Card) (bool, error) {
		before = c.Clone()
		return Apply(c, ch)
	})
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return card, false, nil
	}

	s.logger.Info("cardservice: updated", slog.String("card", id))
	s.index(card)
	for _, target := range card.Links {
		if !before.LinksTo(target) {
			if err := s.addLink(target, id); err != nil {
				return card, true, err
			}
		}
	}
	for _, target := range before.Links {
		if !card.LinksTo(target) {
			if err := s.removeLink(target, id); err != nil {
				return card, true, err
			}
		}
	}
	return card, true, nil
}

// Link makes a and b reference each other. Linking already linked cards is a
// no-op.
func (s *Service) Link(_ context.Context, a, b string) error {
	if a == b {
		return fmt.Errorf("cannot link card %s to itself: %w", a, apperr.ErrValidation)
	}
	if err := s.requireAll([]string{a, b}); err != nil {
		return err
	}
	if err := s.addLink(a, b); err != nil {
		return err
	}
	return s.addLink(b, a)
}

// Unlink removes the link between a and b in both directions.
func (s *Service) Unlink(_ context.Context, a, b string) error {
	if a == b {
		return fmt.Errorf("cannot unlink card %s from itself: %w", a, apperr.ErrValidation)
	}
	if err := s.requireAll([]string{a, b}); err != nil {
		return err
	}
	if err := s.removeLink(a, b); err != nil {
		return err
	}
	return s.removeLink(b, a)
}

// Sequence makes b the successor of a. A different existing successor is
// only replaced with force.
func (s *Service) Sequence(_ context.Context, a, b string, force bool) error {
	if a == b {
		return fmt.Errorf("card %s cannot follow itself: %w", a, apperr.ErrValidation)
	}
	if err := s.requireAll([]string{a, b}); err != nil {
		return err
	}
	card, changed, err := s.store.Update(a, func(c *models.Card) (bool, error) {
		return Apply(c, Changes{Sequence: &b, Force: force})
	})
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("cardservice: sequenced", slog.String("card", a), slog.String("next", b))
		s.index(card)
	}
	return nil
}

// Delete removes a card, backing it up first, and strips it from the Links
// of the cards it was linked with. Children and sequence pointers to the
// card are left as they are.
func (s *Service) Delete(_ context.Context, id string) error {
	card, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.Info("cardservice: deleted", slog.String("card", id))
	if s.catalog != nil {
		if err := s.catalog.DeleteCard(id); err != nil {
			s.logger.Warn("cardservice: catalog delete failed", slog.String("card", id), slog.String("error", err.Error()))
		}
	}
	for _, target := range card.Links {
		if err := s.removeLink(target, id); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the IDs of cards carrying every tag.
func (s *Service) Find(_ context.Context, tags []string) ([]string, error) {
	if s.catalog != nil {
		return s.catalog.FindByTags(tags)
	}
	tags = uniq(tags)
	if len(tags) == 0 {
		return nil, nil
	}
	return s.scan(func(c *models.Card) bool {
		for _, t := range tags {
			if !c.HasTag(t) {
				return false
			}
		}
		return true
	})
}

// Backlinks returns the IDs of cards whose Links contain id.
func (s *Service) Backlinks(_ context.Context, id string) ([]string, error) {
	if s.catalog != nil {
		return s.catalog.Backlinks(id)
	}
	return s.scan(func(c *models.Card) bool { return c.LinksTo(id) })
}

// Reindex rebuilds the ID → title index from the cards.
func (s *Service) Reindex(_ context.Context) (int, error) {
	return s.store.Reindex()
}

func (s *Service) scan(match func(*models.Card) bool) ([]string, error) {
	cards, err := s.store.All()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range cards {
		if match(c) {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

// requireAll fails with ErrNotFound naming the first missing card.
func (s *Service) requireAll(ids []string) error {
	for _, id := range ids {
		ok, err := s.store.Exists(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("card %s: %w", id, apperr.ErrNotFound)
		}
	}
	return nil
}

// addLink adds target to the Links of id inside id's exclusive section.
func (s *Service) addLink(id, target string) error {
	card, changed, err := s.store.Update(id, func(c *models.Card) (bool, error) {
		return Apply(c, Changes{AddLinks: []string{target}})
	})
	if err != nil {
		return err
	}
	if changed {
		s.index(card)
	}
	return nil
}

// removeLink drops target from the Links of id. A missing card has nothing
// to drop.
func (s *Service) removeLink(id, target string) error {
	card, changed, err := s.store.Update(id, func(c *models.Card) (bool, error) {
		return Apply(c, Changes{RemoveLinks: []string{target}})
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if changed {
		s.index(card)
	}
	return nil
}

// index writes a card through to the catalog. The catalog is a cache that
// Sync rebuilds, so failures are only logged.
func (s *Service) index(card *models.Card) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.IndexCard(card); err != nil {
		s.logger.Warn("cardservice: catalog update failed", slog.String("card", card.ID), slog.String("error", err.Error()))
	}
}

func uniq(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
