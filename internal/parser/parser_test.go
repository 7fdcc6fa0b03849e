package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/models"
)

func TestFormatParseRoundTrip(t *testing.T) {
	card := &models.Card{
		ID:           "7.2",
		Date:         "2025-07-01",
		Type:         models.TypeLiterature,
		Title:        "Title: with colon",
		Summary:      "S",
		Tags:         []string{"go", "1984"},
		Links:        []string{"3", "7.10"},
		SequenceNext: "8",
		Context:      "C",
		Next:         "N",
		Body:         "line one\nline two\n",
	}
	data, err := Format(card)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(got, card) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, card)
	}
}

func TestParse_HandWrittenFile(t *testing.T) {
	input := []byte("ID: 7\nDate: '2025-07-01'\nType: idea\nTitle: T\nSummary: ''\nTags: []\nLinks: [3]\nSequenceNext: null\nContext: ''\nNext: ''\nBody: b\n")
	c, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.ID != "7" {
		t.Errorf("ID = %q, want 7", c.ID)
	}
	if len(c.Links) != 1 || c.Links[0] != "3" {
		t.Errorf("Links = %v, want [3]", c.Links)
	}
	if c.SequenceNext != "" {
		t.Errorf("SequenceNext = %q, want empty", c.SequenceNext)
	}
	if c.Tags == nil {
		t.Error("Tags should be normalized to an empty slice")
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("ID: '1'\nTitle: T\nBody: b\nColour: red\n"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown field, got %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse([]byte("\n")); err == nil {
		t.Error("expected error for empty record")
	}
}

func TestIndexRoundTrip(t *testing.T) {
	idx := models.Index{"1": "First", "1.1": "Child", "10": "Tenth"}
	data, err := FormatIndex(idx)
	if err != nil {
		t.Fatalf("FormatIndex: %v", err)
	}
	got, err := ParseIndex(data)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	if !reflect.DeepEqual(got, idx) {
		t.Errorf("index = %v, want %v", got, idx)
	}
}

func TestParseIndex_Empty(t *testing.T) {
	idx, err := ParseIndex(nil)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	if idx == nil || len(idx) != 0 {
		t.Errorf("idx = %v, want empty map", idx)
	}
}
