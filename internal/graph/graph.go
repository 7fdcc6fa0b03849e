// Package graph builds the unified card graph and answers traversal queries
// over it. A Graph is a point-in-time snapshot; it is never mutated after Build.
package graph

import (
	"slices"

	"github.com/starford/cardbox/internal/cardid"
	"github.com/starford/cardbox/internal/models"
)

// EdgeKind names the relation that produced an adjacency entry.
type EdgeKind string

const (
	EdgeLink      EdgeKind = "link"
	EdgeSequence  EdgeKind = "sequence"
	EdgeHierarchy EdgeKind = "hierarchy"
)

// Graph is the unified adjacency over links, sequence pointers and the ID
// hierarchy.
type Graph struct {
	adj      map[string][]string
	kinds    map[edge][]EdgeKind
	parentOf map[string]string
	cards    map[string]*models.Card
	order    []string // card IDs in natural order
}

type edge struct{ from, to string }

// Build derives the graph from a snapshot of cards. Link and hierarchy edges
// are registered in both directions, sequence edges forward only. Targets
// that are not themselves cards still become nodes. No validation is done
// and cycles are kept.
func Build(cards []*models.Card) *Graph {
	g := &Graph{
		adj:      make(map[string][]string),
		kinds:    make(map[edge][]EdgeKind),
		parentOf: make(map[string]string),
		cards:    make(map[string]*models.Card, len(cards)),
	}
	for _, c := range cards {
		g.cards[c.ID] = c
		g.order = append(g.order, c.ID)
	}
	cardid.Sort(g.order)

	for _, id := range g.order {
		c := g.cards[id]
		for _, t := range c.Links {
			g.add(id, t, EdgeLink)
			g.add(t, id, EdgeLink)
		}
		if c.SequenceNext != "" {
			g.add(id, c.SequenceNext, EdgeSequence)
		}
		if parent, ok := cardid.Parent(id); ok {
			g.parentOf[id] = parent
			g.add(id, parent, EdgeHierarchy)
			g.add(parent, id, EdgeHierarchy)
		}
	}
	for id := range g.adj {
		cardid.Sort(g.adj[id])
	}
	return g
}

func (g *Graph) add(from, to string, kind EdgeKind) {
	e := edge{from, to}
	if slices.Contains(g.kinds[e], kind) {
		return
	}
	if len(g.kinds[e]) == 0 {
		g.adj[from] = append(g.adj[from], to)
	}
	g.kinds[e] = append(g.kinds[e], kind)
}

// Has reports whether id is a card of the snapshot.
func (g *Graph) Has(id string) bool {
	_, ok := g.cards[id]
	return ok
}

// Card returns the snapshot card with the given ID.
func (g *Graph) Card(id string) (*models.Card, bool) {
	c, ok := g.cards[id]
	return c, ok
}

// Len returns the number of cards.
func (g *Graph) Len() int { return len(g.order) }

// Neighbors returns the adjacent nodes of id in natural order.
func (g *Graph) Neighbors(id string) []string {
	return slices.Clone(g.adj[id])
}

// EdgeKinds returns the relations behind the directed edge from → to, or
// nil when the nodes are not adjacent.
func (g *Graph) EdgeKinds(from, to string) []EdgeKind {
	return slices.Clone(g.kinds[edge{from, to}])
}

// Parent returns the hierarchical parent recorded for id.
func (g *Graph) Parent(id string) (string, bool) {
	p, ok := g.parentOf[id]
	return p, ok
}
