// Package models defines the domain types shared by the Weave parser,
// validators, graph builder and the surrounding service layers.
package models

import "time"

// Section is one Weave document's identity, metadata and body text.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Peek  string `json:"peek,omitempty"`
	Body  string `json:"body"`
}

// AST is the compiled result of parsing a single document.
// Sections always holds exactly one entry for a successful parse.
type AST struct {
	Sections    []Section    `json:"sections"`
	Links       []Link       `json:"links"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// DocumentMetadata is a lightweight representation of a workspace file
// returned by storage list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
