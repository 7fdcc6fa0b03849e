// Package internal provides the application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/cardbox/internal/allocator"
	"github.com/starford/cardbox/internal/cardservice"
	"github.com/starford/cardbox/internal/cardstore"
	"github.com/starford/cardbox/internal/catalog"
	"github.com/starford/cardbox/internal/editor"
	"github.com/starford/cardbox/internal/lock"
	"github.com/starford/cardbox/internal/storage"
)

// App is an opened card store with its services.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Files   *storage.FS
	Store   *cardstore.Store
	Alloc   *allocator.Allocator
	Catalog *catalog.DB
	Cards   *cardservice.Service
	Edit    editor.Func
}

// Open wires the application from the given options. The store directory is
// created if needed and the catalog is synchronized with the card files.
func Open(opts ...Option) (*App, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config
	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := app.logger
	if logger == nil {
		out := app.logOutput
		if out == nil {
			out = os.Stderr
		}
		// Stdout carries command output, so logs go elsewhere.
		logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	logger.Debug("configuration loaded",
		slog.String("store_path", cfg.Store.Path),
		slog.String("backup_dir", cfg.Backup.Dir),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Store.Path,
		storage.WithBackupDir(cfg.Backup.Dir),
		storage.WithBackupLimit(cfg.Backup.Limit))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	locker, err := lock.NewFileLocker(cfg.LockDir())
	if err != nil {
		return nil, fmt.Errorf("init locks: %w", err)
	}

	store := cardstore.New(files, locker,
		cardstore.WithIndexFile(cfg.Store.IndexFile),
		cardstore.WithLogger(logger))
	alloc := allocator.New(store, locker, cfg.Store.AllocLock)

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	if err := catalog.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	edit := app.editor
	if edit == nil {
		edit = editor.New(cfg.Editor.Command).Edit
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Files:   files,
		Store:   store,
		Alloc:   alloc,
		Catalog: db,
		Cards:   cardservice.NewService(store, alloc, db, logger),
		Edit:    edit,
	}, nil
}

// Close releases the catalog database.
func (a *App) Close() error {
	return a.Catalog.Close()
}

// Watch keeps the catalog in sync with edits made outside the tool until ctx
// is cancelled or the process receives SIGINT or SIGTERM. cb, if non-nil, is
// called after every catalog change.
func (a *App) Watch(ctx context.Context, cb catalog.EventCallback) error {
	g, gCtx := errgroup.WithContext(ctx)
	gCtx, stop := context.WithCancel(gCtx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return catalog.Watch(gCtx, a.Catalog, a.Files, a.Files.Root(), a.Logger, cb)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.Logger.Info("received shutdown signal", slog.String("signal", sig.String()))
			stop()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("watch error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
