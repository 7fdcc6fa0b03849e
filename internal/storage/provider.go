// Package storage defines the byte-level record store used by the card store.
package storage

import "github.com/starford/cardbox/internal/models"

// Provider is the interface for record file operations. Names are file names
// relative to the store root, e.g. "7.2.yaml".
type Provider interface {
	// List returns metadata for every record file directly under the root.
	List() ([]models.RecordMetadata, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Exists reports whether the named file is present.
	Exists(name string) (bool, error)
	// Write atomically replaces the named file, backing up the previous version.
	Write(name string, content []byte) error
	// Delete backs up and removes the named file.
	Delete(name string) error
}
