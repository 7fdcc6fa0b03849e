package catalog

import "github.com/starford/cardbox/internal/models"

// CardIndex defines the catalog operations used by the card service.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type CardIndex interface {
	IndexCard(card *models.Card) error
	DeleteCard(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	FindByTags(tags []string) ([]string, error)
	Backlinks(target string) ([]string, error)
	Close() error
}

// Verify *DB satisfies CardIndex at compile time.
var _ CardIndex = (*DB)(nil)
