// Package vector provides the capability interface and implementations for
// the dense index: nearest-neighbor search over fixed-dimension embeddings of
// memory chunk text.
package vector

import "context"

// Document is a stored chunk representation with its embedding and metadata.
// The dense index owns chunk content: downstream pipeline stages rebuild
// chunks from Documents fetched here and never write back.
type Document struct {
	// ID is the globally unique chunk identifier.
	ID string

	// Text is the stored passage.
	Text string

	// Embedding is the dense vector representation of Text.
	Embedding []float32

	// Metadata carries chunk attributes (kind, speaker, session_id,
	// created_at as RFC3339, and any enrichment tags).
	Metadata map[string]string
}

// QueryResult is a search hit with its similarity score.
type QueryResult struct {
	Document

	// Score is the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of embedded chunks.
type Driver interface {
	// Add stores documents with their embeddings. Adding an existing ID
	// updates the stored document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// best first.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
