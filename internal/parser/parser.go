// Package parser decodes and encodes card and index records stored as YAML.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/models"
)

// Parse decodes a card record. Unknown keys are rejected so that a typo in a
// hand-edited file is reported instead of silently dropped.
func Parse(data []byte) (*models.Card, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty card record", apperr.ErrValidation)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var card models.Card
	if err := dec.Decode(&card); err != nil {
		return nil, fmt.Errorf("%w: decode card: %v", apperr.ErrValidation, err)
	}
	card.Normalize()
	return &card, nil
}

// Format encodes a card record.
func Format(card *models.Card) ([]byte, error) {
	c := card.Clone()
	return encode(c)
}

// ParseIndex decodes the ID → title index. An empty document is an empty index.
func ParseIndex(data []byte) (models.Index, error) {
	idx := models.Index{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&idx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode index: %v", apperr.ErrValidation, err)
	}
	if idx == nil {
		idx = models.Index{}
	}
	return idx, nil
}

// FormatIndex encodes the ID → title index.
func FormatIndex(idx models.Index) ([]byte, error) {
	if idx == nil {
		idx = models.Index{}
	}
	return encode(idx)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	return buf.Bytes(), nil
}
