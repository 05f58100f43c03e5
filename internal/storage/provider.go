// Package storage defines the file-system abstraction behind the calendar
// import and export directories.
package storage

import "time"

// FileMeta describes one calendar file found by List.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for calendar file operations.
type Provider interface {
	// List returns metadata for every file with the provider's extension under dir.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
