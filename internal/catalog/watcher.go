package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/cardbox/internal/cardid"
	"github.com/starford/cardbox/internal/storage"
)

// EventCallback is called after a watcher-driven catalog change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the store root and processes card file
// changes until ctx is cancelled. It calls cb (if non-nil) after each
// successful catalog mutation.
//
// Card writes land through a rename of a temp file, so a Create on a card
// file is treated like a Write. Rename events trigger a debounced
// reconciliation pass that catches files moved in or out of the store.
func Watch(ctx context.Context, db *DB, files storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, files, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			id, isCard := cardFile(ev.Name)
			if !isCard {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				existed, _ := db.GetChecksum(id)
				data, readErr := files.Read(id + storage.RecordExt)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("card", id), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := indexFile(db, id, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("card", id), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if existed == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("card", id), slog.String("op", kind))
				if cb != nil {
					cb(kind, id)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteCard(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("card", id), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("card", id))
				if cb != nil {
					cb("deleted", id)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old name only; the new name
				// arrives as a Create if it stays inside the root.
				if delErr := db.DeleteCard(id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("card", id), slog.String("error", delErr.Error()))
				} else if cb != nil {
					cb("deleted", id)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// cardFile maps an event path to a card ID. Only <id>.yaml files directly
// in the root qualify; the index and temp files do not.
func cardFile(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, storage.RecordExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, storage.RecordExt)
	return id, cardid.Valid(id)
}

// reconcile compares checksums on disk against the catalog, removing
// entries whose file is gone and indexing files that are new or changed.
func reconcile(db *DB, files storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := files.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		if cardid.Valid(m.ID) {
			disk[m.ID] = m.Checksum
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if delErr := db.DeleteCard(id); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("card", id))
				if cb != nil {
					cb("deleted", id)
				}
			}
		}
	}

	for id, cs := range disk {
		if checksums[id] == cs {
			continue
		}
		data, readErr := files.Read(id + storage.RecordExt)
		if readErr != nil {
			continue
		}
		if idxErr := indexFile(db, id, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("card", id))
			if cb != nil {
				cb("created", id)
			}
		}
	}
}
