// Package keyword defines the sparse index capability for memory chunks.
//
// The sparse index scores documents by lexical overlap with a query. Scores
// are only comparable within a single search's result list; the retriever
// fuses them with dense results by rank, never by raw value.
package keyword

import "context"

// Document is a chunk entry in the sparse index.
type Document struct {
	// ID is the chunk identifier, shared with the dense index.
	ID string

	// Text is the indexed chunk text.
	Text string
}

// Result is a scored match from a search.
type Result struct {
	ID    string
	Score float64
}

// Driver is the interface sparse index backends implement.
type Driver interface {
	// Add indexes documents, replacing any existing entries with the same ID.
	Add(ctx context.Context, docs []Document) error

	// Search returns up to topK documents ranked by lexical relevance,
	// best first.
	Search(ctx context.Context, query string, topK int) ([]Result, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the driver.
	Close() error
}
