// Package storage defines the workspace file-system abstraction.
package storage

import (
	"strings"

	"github.com/starford/weave/internal/models"
)

// Provider reads and writes Weave documents relative to a workspace root.
type Provider interface {
	// List returns metadata for every document under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the document at path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// IsDocument reports whether name has a document extension.
func IsDocument(name string) bool {
	for _, ext := range DocumentExtensions {
		if len(name) > len(ext) && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// DocumentExtensions are the file extensions treated as Weave documents.
var DocumentExtensions = []string{".md"}

// ExcludedDirs are never descended into when listing.
var ExcludedDirs = []string{".git", "node_modules"}
