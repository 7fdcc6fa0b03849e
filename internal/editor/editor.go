// Package editor runs an external text editor on a temporary file.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// DefaultCommand is used when neither the configuration nor $EDITOR names an
// editor.
const DefaultCommand = "nano"

// Func edits initial text and returns the saved result.
type Func func(ctx context.Context, initial string) (string, error)

// Editor invokes a command line such as "vim" or "code --wait" with the path
// of a temporary file appended.
type Editor struct {
	Command string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// Command picks the editor command: configured, then $EDITOR, then nano.
func Command(configured string) string {
	if c := strings.TrimSpace(configured); c != "" {
		return c
	}
	if c := strings.TrimSpace(os.Getenv("EDITOR")); c != "" {
		return c
	}
	return DefaultCommand
}

// New creates an Editor attached to the process terminal.
func New(configured string) *Editor {
	return &Editor{
		Command: Command(configured),
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Edit blocks until the editor exits and returns the file content.
func (e *Editor) Edit(ctx context.Context, initial string) (string, error) {
	argv := strings.Fields(e.Command)
	if len(argv) == 0 {
		return "", errors.New("editor: no command configured")
	}

	f, err := os.CreateTemp("", "cards-body-*.md")
	if err != nil {
		return "", fmt.Errorf("editor: create temp: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", fmt.Errorf("editor: write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("editor: close temp: %w", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.Stdin, e.Stdout, e.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor: run %s: %w", argv[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("editor: read result: %w", err)
	}
	return string(data), nil
}
