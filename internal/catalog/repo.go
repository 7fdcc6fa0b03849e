package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/cardbox/internal/cardid"
	"github.com/starford/cardbox/internal/checksum"
	"github.com/starford/cardbox/internal/models"
	"github.com/starford/cardbox/internal/parser"
)

// CardRow represents a row in the cards table.
type CardRow struct {
	ID           string
	Title        string
	Type         string
	Checksum     string
	SequenceNext string
	Tags         []string
	UpdatedAt    time.Time
}

// IndexCard upserts a card. The checksum is taken over the card's encoded
// form, which is exactly what the card store writes to disk.
func (db *DB) IndexCard(card *models.Card) error {
	data, err := parser.Format(card)
	if err != nil {
		return fmt.Errorf("catalog: encode %s: %w", card.ID, err)
	}
	return db.UpsertCard(rowFromCard(card, checksum.Sum(data)), card.Links)
}

func rowFromCard(card *models.Card, sum string) CardRow {
	return CardRow{
		ID:           card.ID,
		Title:        card.Title,
		Type:         string(card.Type),
		Checksum:     sum,
		SequenceNext: card.SequenceNext,
		Tags:         card.Tags,
		UpdatedAt:    time.Now(),
	}
}

// UpsertCard inserts or replaces a card with its tags and outgoing links
// within a transaction.
func (db *DB) UpsertCard(r CardRow, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO cards (id, title, type, checksum, sequence_next, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title         = excluded.title,
			type          = excluded.type,
			checksum      = excluded.checksum,
			sequence_next = excluded.sequence_next,
			updated_at    = excluded.updated_at
	`, r.ID, r.Title, r.Type, r.Checksum, r.SequenceNext, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert card: %w", err)
	}

	if err := replace(tx, `DELETE FROM card_tags WHERE card_id = ?`,
		`INSERT OR IGNORE INTO card_tags (card_id, tag) VALUES (?, ?)`, r.ID, r.Tags); err != nil {
		return fmt.Errorf("catalog: tags: %w", err)
	}
	if err := replace(tx, `DELETE FROM card_links WHERE source = ?`,
		`INSERT OR IGNORE INTO card_links (source, target) VALUES (?, ?)`, r.ID, links); err != nil {
		return fmt.Errorf("catalog: links: %w", err)
	}

	return tx.Commit()
}

// replace deletes the rows owned by id and bulk inserts values.
func replace(tx *sql.Tx, deleteSQL, insertSQL, id string, values []string) error {
	if _, err := tx.Exec(deleteSQL, id); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, v := range values {
		if _, err := stmt.Exec(id, v); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCard removes a card with its tags and outgoing links.
func (db *DB) DeleteCard(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM card_tags WHERE card_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM card_links WHERE source = ?`, id)
	_, _ = tx.Exec(`DELETE FROM cards WHERE id = ?`, id)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a card, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM cards WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every cataloged card keyed by ID.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM cards`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// FindByTags returns the IDs of cards carrying every one of tags, in natural
// ID order. Duplicate tags count once; no tags match nothing.
func (db *DB) FindByTags(tags []string) ([]string, error) {
	uniq := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	if len(uniq) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(uniq)+1)
	for _, t := range uniq {
		args = append(args, t)
	}
	args = append(args, len(uniq))
	q := `SELECT card_id FROM card_tags WHERE tag IN (?` + strings.Repeat(", ?", len(uniq)-1) + `)
		GROUP BY card_id HAVING COUNT(DISTINCT tag) = ?`
	return db.ids(q, args...)
}

// Backlinks returns the IDs of cards whose Links contain target, in natural
// ID order.
func (db *DB) Backlinks(target string) ([]string, error) {
	return db.ids(`SELECT source FROM card_links WHERE target = ?`, target)
}

func (db *DB) ids(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	cardid.Sort(out)
	return out, nil
}
