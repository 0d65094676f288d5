// Package storage defines the read-only skin file-system abstraction.
package storage

import "github.com/starford/skinlens/internal/models"

// Provider is the interface for skin file access. All paths are relative to
// the skin root unless stated otherwise.
type Provider interface {
	// Root returns the absolute skin root directory.
	Root() string
	// Abs resolves path against the root, rejecting paths that escape it.
	Abs(path string) (string, error)
	// Rel converts an absolute path below the root into a relative one.
	Rel(abs string) (string, error)
	// Exists reports whether path names a regular file.
	Exists(path string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// List returns metadata for every file under dir with one of exts
	// (every file when exts is empty).
	List(dir string, exts ...string) ([]models.FileMeta, error)
	// Entries returns the names of the direct children of dir.
	Entries(dir string) ([]string, error)
}
