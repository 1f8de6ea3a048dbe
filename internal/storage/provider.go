// Package storage defines the vault file-system abstraction.
package storage

import "time"

// FileInfo describes one candidate entry file found in the vault.
type FileInfo struct {
	Path    string // relative to vault root, slash-separated
	ModTime time.Time
}

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// List walks dir and returns every regular, non-hidden .md file in
	// lexical order.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether anything occupies path.
	Exists(path string) (bool, error)
	// SetModTime sets the modification time of the file at path.
	SetModTime(path string, t time.Time) error
}
