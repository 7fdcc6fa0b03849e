package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/cardbox/internal/apperr"
	"github.com/starford/cardbox/internal/checksum"
	"github.com/starford/cardbox/internal/models"
)

// RecordExt is the file extension of every stored record.
const RecordExt = ".yaml"

// DefaultBackupLimit is the number of backups kept per record.
const DefaultBackupLimit = 50

const backupStamp = "20060102T150405.000000000"

// FS implements Provider backed by a flat directory of YAML files.
type FS struct {
	root      string // absolute path to the store directory
	backupDir string
	keep      int
	now       func() time.Time
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithBackupDir sets where previous versions are copied. Defaults to
// <root>/backups.
func WithBackupDir(dir string) FSOption {
	return func(f *FS) { f.backupDir = dir }
}

// WithBackupLimit sets how many backups are kept per record.
func WithBackupLimit(n int) FSOption {
	return func(f *FS) { f.keep = n }
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{
		root:      abs,
		backupDir: filepath.Join(abs, "backups"),
		keep:      DefaultBackupLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := os.MkdirAll(f.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create backup dir: %w", err)
	}
	return f, nil
}

// Root returns the absolute store directory.
func (f *FS) Root() string { return f.root }

// BackupDir returns the directory holding record backups.
func (f *FS) BackupDir() string { return f.backupDir }

// safePath resolves a record name against the root and rejects anything that
// is not a plain file directly inside it.
func (f *FS) safePath(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("storage: invalid name %q: %w", name, apperr.ErrValidation)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || cleaned == ".." || cleaned == "." {
		return "", fmt.Errorf("storage: name escapes store root: %s: %w", name, apperr.ErrValidation)
	}
	return filepath.Join(f.root, cleaned), nil
}

// List returns metadata for every *.yaml file directly under the root.
// Subdirectories (backups, locks) are not descended into.
func (f *FS) List() ([]models.RecordMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.RecordMetadata
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), RecordExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.RecordMetadata{
			ID:        strings.TrimSuffix(e.Name(), RecordExt),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the raw bytes of a record file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether the record file is present.
func (f *FS) Exists(name string) (bool, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("storage: stat %s: %w", name, err)
	}
}

// Write backs up the current version, if any, then atomically writes
// content: tmp file → fsync → rename.
func (f *FS) Write(name string, content []byte) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := f.backup(abs); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".cards-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete backs up and removes a record file.
func (f *FS) Delete(name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := f.backup(abs); err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", name, apperr.ErrNotFound)
		}
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

// Backups returns the backup file names of a record, oldest first.
func (f *FS) Backups(name string) ([]string, error) {
	stem := strings.TrimSuffix(filepath.Base(name), RecordExt)
	matches, err := filepath.Glob(filepath.Join(f.backupDir, globEscape(stem)+"_*"+RecordExt))
	if err != nil {
		return nil, fmt.Errorf("storage: list backups: %w", err)
	}
	sort.Strings(matches)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Base(m)
	}
	return out, nil
}

// backup copies the file at abs into the backup directory as
// <stem>_<timestamp>.yaml and prunes the oldest copies beyond the limit.
// A missing file needs no backup.
func (f *FS) backup(abs string) error {
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: backup read: %w", err)
	}
	name := filepath.Base(abs)
	stem := strings.TrimSuffix(name, RecordExt)
	dst := filepath.Join(f.backupDir, stem+"_"+f.now().Format(backupStamp)+RecordExt)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("storage: backup write: %w", err)
	}

	existing, err := f.Backups(name)
	if err != nil {
		return err
	}
	if f.keep > 0 && len(existing) > f.keep {
		for _, stale := range existing[:len(existing)-f.keep] {
			if err := os.Remove(filepath.Join(f.backupDir, stale)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("storage: prune backup: %w", err)
			}
		}
	}
	return nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}
