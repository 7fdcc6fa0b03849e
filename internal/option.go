package internal

import (
	"io"
	"log/slog"

	"github.com/starford/cardbox/internal/editor"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	logOutput io.Writer
	editor    editor.Func
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithLogOutput sets where the JSON logger writes. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithEditor replaces the external editor used for card bodies.
func WithEditor(fn editor.Func) Option {
	return func(a *application) {
		a.editor = fn
	}
}
