package cardservice

import (
	"fmt"
	"slices"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/models"
)

// Changes is a set of optional edits to one card. Nil pointers and empty
// slices leave the corresponding field alone.
type Changes struct {
	Title   *string
	Summary *string
	Body    *string
	Context *string
	Next    *string
	Type    *models.CardType

	// Sequence sets SequenceNext; an empty target clears it. Replacing a
	// different existing successor requires Force.
	Sequence *string
	Force    bool

	AddTags     []string
	RemoveTags  []string
	AddLinks    []string
	RemoveLinks []string
}

// Empty reports whether the changes request nothing at all.
func (ch Changes) Empty() bool {
	return ch.Title == nil && ch.Summary == nil && ch.Body == nil && ch.Context == nil &&
		ch.Next == nil && ch.Type == nil && ch.Sequence == nil &&
		len(ch.AddTags) == 0 && len(ch.RemoveTags) == 0 &&
		len(ch.AddLinks) == 0 && len(ch.RemoveLinks) == 0
}

// Apply edits c in place and reports whether anything changed. A changed
// card is validated as a whole; on error the caller must discard c.
func Apply(c *models.Card, ch Changes) (bool, error) {
	changed := false
	set := func(field *string, v *string) {
		if v != nil && *v != *field {
			*field = *v
			changed = true
		}
	}
	set(&c.Title, ch.Title)
	set(&c.Summary, ch.Summary)
	set(&c.Body, ch.Body)
	set(&c.Context, ch.Context)
	set(&c.Next, ch.Next)
	if ch.Type != nil && *ch.Type != c.Type {
		c.Type = *ch.Type
		changed = true
	}

	if ch.Sequence != nil {
		seq, err := assignSequence(c, *ch.Sequence, ch.Force)
		if err != nil {
			return false, err
		}
		changed = changed || seq
	}

	var added, removed bool
	c.Tags, added = addAll(c.Tags, ch.AddTags)
	changed = changed || added
	c.Tags, removed = removeAll(c.Tags, ch.RemoveTags)
	changed = changed || removed
	c.Links, added = addAll(c.Links, ch.AddLinks)
	changed = changed || added
	c.Links, removed = removeAll(c.Links, ch.RemoveLinks)
	changed = changed || removed

	if !changed {
		return false, nil
	}
	if err := c.Validate(); err != nil {
		return false, err
	}
	return true, nil
}

// assignSequence points c at target unless that would silently replace a
// different successor.
func assignSequence(c *models.Card, target string, force bool) (bool, error) {
	if target == c.SequenceNext {
		return false, nil
	}
	if c.SequenceNext != "" && !force {
		return false, fmt.Errorf("card %s already continues with %s, use force to replace it: %w",
			c.ID, c.SequenceNext, apperr.ErrConflict)
	}
	c.SequenceNext = target
	return true, nil
}

// addAll appends the values missing from set, keeping insertion order.
func addAll(set, values []string) ([]string, bool) {
	changed := false
	for _, v := range values {
		if !slices.Contains(set, v) {
			set = append(set, v)
			changed = true
		}
	}
	return set, changed
}

// removeAll drops every occurrence of values from set.
func removeAll(set, values []string) ([]string, bool) {
	if len(values) == 0 {
		return set, false
	}
	out := slices.DeleteFunc(slices.Clone(set), func(s string) bool {
		return slices.Contains(values, s)
	})
	return out, len(out) != len(set)
}
