package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/cardbox/internal/allocator"
	"github.com/starford/cardbox/internal/cardstore"
	"github.com/starford/cardbox/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Backup  BackupConfig      `yaml:"backup"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Editor  EditorConfig      `yaml:"editor"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Backup.Validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// StoreConfig locates the card files.
//
// IndexFile and AllocLock are plain file names inside Path; the allocation
// lock is kept with the other lock files under Path/.locks.
type StoreConfig struct {
	Path      string `yaml:"path"`
	IndexFile string `yaml:"index_file"`
	AllocLock string `yaml:"alloc_lock"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.IndexFile, validation.Required, validation.By(plainName),
			validation.By(func(any) error {
				if !strings.HasSuffix(c.IndexFile, storage.RecordExt) {
					return fmt.Errorf("must end in %s", storage.RecordExt)
				}
				return nil
			})),
		validation.Field(&c.AllocLock, validation.Required, validation.By(plainName)),
	)
}

// BackupConfig controls the copies kept before every overwrite. An empty Dir
// means <store>/backups.
type BackupConfig struct {
	Dir   string `yaml:"dir"`
	Limit int    `yaml:"limit"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Limit, validation.Required, validation.Min(1)),
	)
}

// CatalogConfig holds the SQLite catalog location. An empty Path means
// <store>/.catalog.db.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// EditorConfig names the editor used for card bodies. Empty falls back to
// $EDITOR, then nano.
type EditorConfig struct {
	Command string `yaml:"command"`
}

// Resolve expands a leading ~ in every path and fills in the paths derived
// from the store root.
func (c *Config) Resolve() error {
	var err error
	if c.Store.Path, err = expandHome(c.Store.Path); err != nil {
		return err
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(c.Store.Path, "backups")
	} else if c.Backup.Dir, err = expandHome(c.Backup.Dir); err != nil {
		return err
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(c.Store.Path, ".catalog.db")
	} else if c.Catalog.Path, err = expandHome(c.Catalog.Path); err != nil {
		return err
	}
	return nil
}

// LockDir returns the directory holding the lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Store.Path, ".locks")
}

// IndexPath returns the full path of the index file.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Store.Path, c.Store.IndexFile)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

func plainName(value any) error {
	s, _ := value.(string)
	if s != filepath.Base(s) || s == "." || s == ".." {
		return errors.New("must be a file name without directories")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelWarn,
		},
		Store: StoreConfig{
			Path:      "~/cards",
			IndexFile: cardstore.DefaultIndexFile,
			AllocLock: allocator.DefaultLockKey,
		},
		Backup: BackupConfig{
			Limit: storage.DefaultBackupLimit,
		},
	}
}
