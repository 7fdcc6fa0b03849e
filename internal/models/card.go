// Package models defines the domain types for cardbox.
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/cardid"
)

// DateLayout is the on-disk format of Card.Date.
const DateLayout = "2006-01-02"

// CardType classifies a card.
type CardType string

const (
	TypeIdea       CardType = "idea"
	TypeLiterature CardType = "literature"
)

// CardTypes lists every accepted CardType.
var CardTypes = []CardType{TypeIdea, TypeLiterature}

// ParseCardType validates a user-supplied type name.
func ParseCardType(s string) (CardType, error) {
	t := CardType(strings.TrimSpace(s))
	if !slices.Contains(CardTypes, t) {
		return "", fmt.Errorf("%w: unknown card type %q", apperr.ErrValidation, s)
	}
	return t, nil
}

// Card is a single stored note. Field names match the YAML keys of the card files.
type Card struct {
	ID           string   `yaml:"ID" json:"id"`
	Date         string   `yaml:"Date" json:"date"`
	Type         CardType `yaml:"Type" json:"type"`
	Title        string   `yaml:"Title" json:"title"`
	Summary      string   `yaml:"Summary" json:"summary"`
	Tags         []string `yaml:"Tags" json:"tags"`
	Links        []string `yaml:"Links" json:"links"`
	SequenceNext string   `yaml:"SequenceNext" json:"sequence_next,omitempty"`
	Context      string   `yaml:"Context" json:"context"`
	Next         string   `yaml:"Next" json:"next"`
	Body         string   `yaml:"Body" json:"body"`
}

// NewCard returns a card dated today with empty tag and link sets.
func NewCard(id string, typ CardType, title, body string) *Card {
	return &Card{
		ID:    id,
		Date:  time.Now().Format(DateLayout),
		Type:  typ,
		Title: title,
		Body:  body,
		Tags:  []string{},
		Links: []string{},
	}
}

// Normalize replaces nil sets with empty ones so decoded and constructed
// cards compare equal.
func (c *Card) Normalize() {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Links == nil {
		c.Links = []string{}
	}
}

// Clone returns a deep copy.
func (c *Card) Clone() *Card {
	out := *c
	out.Tags = slices.Clone(c.Tags)
	out.Links = slices.Clone(c.Links)
	out.Normalize()
	return &out
}

// HasTag reports whether the card carries tag.
func (c *Card) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// LinksTo reports whether the card lists id in Links.
func (c *Card) LinksTo(id string) bool {
	return slices.Contains(c.Links, id)
}

// Validate checks the fields of a card before it is persisted.
func (c *Card) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required, validation.By(validID)),
		validation.Field(&c.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&c.Type, validation.Required, validation.In(TypeIdea, TypeLiterature)),
		validation.Field(&c.Title, validation.By(notBlank)),
		validation.Field(&c.Body, validation.By(notBlank)),
		validation.Field(&c.Links, validation.Each(
			validation.By(validID),
			validation.NotIn(c.ID).Error("a card cannot link to itself"),
		)),
		validation.Field(&c.SequenceNext, validation.By(validID), validation.NotIn(c.ID).Error("a card cannot follow itself")),
	)
	if err != nil {
		return fmt.Errorf("%w: card %s: %v", apperr.ErrValidation, c.ID, err)
	}
	return nil
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be empty")
	}
	return nil
}

func validID(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !cardid.Valid(s) {
		return fmt.Errorf("%q is not a card id", s)
	}
	return nil
}

// Index maps card ID to title.
type Index map[string]string

// RecordMetadata is a lightweight description of one stored card file.
type RecordMetadata struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
