package graph

import (
	"fmt"
	"strings"

	"github.com/starford/cardbox/internal/apperr"
)

// Separators used when rendering traversal results.
const (
	PathSep     = " -> "
	AncestrySep = " > "
	EgoSep      = ", "
	BackwardSep = " <- "
)

// NoPath is printed when two known cards are not connected.
const NoPath = "No path found."

// Require fails with ErrNotFound naming the first ID that is not a card.
func (g *Graph) Require(ids ...string) error {
	for _, id := range ids {
		if !g.Has(id) {
			return fmt.Errorf("card %s: %w", id, apperr.ErrNotFound)
		}
	}
	return nil
}

// FormatPath renders a path, or NoPath when there is none.
func FormatPath(path []string, ok bool) string {
	if !ok {
		return NoPath
	}
	return strings.Join(path, PathSep)
}

// FormatAncestry renders an ancestry chain root first.
func FormatAncestry(chain []string) string {
	return strings.Join(chain, AncestrySep)
}

// FormatEgo renders an ego network.
func FormatEgo(ids []string) string {
	return strings.Join(ids, EgoSep)
}

// FormatSequence renders a sequence walk, which is ordered first to last in
// both directions; only the separator differs.
func FormatSequence(chain []string, backward bool) string {
	if backward {
		return strings.Join(chain, BackwardSep)
	}
	return strings.Join(chain, PathSep)
}
