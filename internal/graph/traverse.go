package graph

import (
	"github.com/starford/cardbox/internal/cardid"
)

// ShortestPath returns a shortest path from start to goal inclusive, all edge
// kinds weighing the same. ok is false when goal is unreachable.
func (g *Graph) ShortestPath(start, goal string) (path []string, ok bool) {
	if start == goal {
		return []string{start}, true
	}
	prev := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, n := range g.adj[node] {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = node
			if n == goal {
				return unwind(prev, start, goal), true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

func unwind(prev map[string]string, start, goal string) []string {
	var rev []string
	for n := goal; n != start; n = prev[n] {
		rev = append(rev, n)
	}
	rev = append(rev, start)
	out := make([]string, len(rev))
	for i, n := range rev {
		out[len(rev)-1-i] = n
	}
	return out
}

// Ancestry returns the chain of hierarchical ancestors of start, root first,
// ending with start itself. The chain stops after the first ancestor missing
// from the snapshot, since only cards record a parent.
func (g *Graph) Ancestry(start string) []string {
	chain := []string{start}
	for cur := start; ; {
		p, ok := g.parentOf[cur]
		if !ok {
			break
		}
		chain = append(chain, p)
		cur = p
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Ego returns every node within depth steps of start, start included, in
// natural order. Expansion stops as soon as a round discovers nothing new.
func (g *Graph) Ego(start string, depth int) []string {
	seen := map[string]struct{}{start: {}}
	out := []string{start}
	frontier := []string{start}
	for step := 0; step < depth && len(frontier) > 0; step++ {
		var next []string
		for _, node := range frontier {
			for _, n := range g.adj[node] {
				if _, ok := seen[n]; ok {
					continue
				}
				seen[n] = struct{}{}
				next = append(next, n)
				out = append(out, n)
			}
		}
		frontier = next
	}
	cardid.Sort(out)
	return out
}

// SequenceWalk follows SequenceNext pointers from start. Forward it returns
// start → … → last; backward it prepends a predecessor until none is left,
// picking the first in natural ID order when several cards point at the same
// card. Both directions stop before revisiting a card, and forward stops
// before a target that is not in the snapshot.
func (g *Graph) SequenceWalk(start string, backward bool) []string {
	visited := map[string]struct{}{start: {}}
	if backward {
		chain := []string{start}
		for cur := start; ; {
			p, ok := g.predecessor(cur)
			if !ok {
				break
			}
			if _, dup := visited[p]; dup {
				break
			}
			visited[p] = struct{}{}
			chain = append(chain, p)
			cur = p
		}
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		return chain
	}

	chain := []string{start}
	for cur := start; ; {
		c, ok := g.cards[cur]
		if !ok || c.SequenceNext == "" {
			break
		}
		next := c.SequenceNext
		if _, dup := visited[next]; dup {
			break
		}
		if !g.Has(next) {
			break
		}
		visited[next] = struct{}{}
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// predecessor scans the snapshot for a card whose SequenceNext is id.
func (g *Graph) predecessor(id string) (string, bool) {
	for _, cid := range g.order {
		if g.cards[cid].SequenceNext == id {
			return cid, true
		}
	}
	return "", false
}
