package models

import (
	"errors"
	"testing"

	"github.com/starford/cardbox/internal/apperr"
)

func validCard() *Card {
	c := NewCard("7.2", TypeIdea, "Title", "Body")
	c.Date = "2025-07-01"
	return c
}

func TestValidate_OK(t *testing.T) {
	if err := validCard().Validate(); err != nil {
		t.Fatalf("valid card rejected: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *Card){
		"blank title":   func(c *Card) { c.Title = "   " },
		"empty body":    func(c *Card) { c.Body = "" },
		"unknown type":  func(c *Card) { c.Type = "poem" },
		"bad id":        func(c *Card) { c.ID = "7.x" },
		"bad date":      func(c *Card) { c.Date = "01/07/2025" },
		"self link":     func(c *Card) { c.Links = []string{"1", "7.2"} },
		"bad link":      func(c *Card) { c.Links = []string{"nope"} },
		"self sequence": func(c *Card) { c.SequenceNext = "7.2" },
	}
	for name, mutate := range cases {
		c := validCard()
		mutate(c)
		err := c.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			continue
		}
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: error %v is not ErrValidation", name, err)
		}
	}
}

func TestParseCardType(t *testing.T) {
	if typ, err := ParseCardType("literature"); err != nil || typ != TypeLiterature {
		t.Errorf("ParseCardType(literature) = %q, %v", typ, err)
	}
	if _, err := ParseCardType("poem"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := validCard()
	c.Tags = []string{"a"}
	cp := c.Clone()
	cp.Tags[0] = "b"
	if c.Tags[0] != "a" {
		t.Error("clone shares tag storage with the original")
	}
}
