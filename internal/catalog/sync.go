package catalog

import (
	"fmt"
	"log/slog"

	"github.com/starford/cardbox/internal/cardid"
	"github.com/starford/cardbox/internal/checksum"
	"github.com/starford/cardbox/internal/parser"
	"github.com/starford/cardbox/internal/storage"
)

// Sync walks the store and brings the catalog up to date:
//   - new/changed card files are parsed and upserted
//   - cards removed from disk are deleted from the catalog
//
// Files that fail to parse are logged and skipped.
func Sync(db *DB, files storage.Provider, logger *slog.Logger) error {
	metas, err := files.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !cardid.Valid(m.ID) {
			continue
		}
		disk[m.ID] = struct{}{}

		if checksums[m.ID] == m.Checksum {
			continue
		}

		data, err := files.Read(m.ID + storage.RecordExt)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("card", m.ID), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.ID, data); err != nil {
			logger.Warn("sync: index failed", slog.String("card", m.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("card", m.ID))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteCard(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("card", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("card", id))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it under the ID its file is named after.
func indexFile(db *DB, id string, data []byte) error {
	card, err := parser.Parse(data)
	if err != nil {
		return err
	}
	if card.ID != id {
		return fmt.Errorf("catalog: file %s holds card %q", id+storage.RecordExt, card.ID)
	}
	return db.UpsertCard(rowFromCard(card, checksum.Sum(data)), card.Links)
}
