package vector

import "errors"

// Sentinel errors shared by every dense index driver. Drivers wrap these
// with %w so callers can branch on the failure class without knowing the
// backend.
var (
	// ErrEmbedding marks a failure to produce an embedding for chunk text.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection marks an unreachable or misbehaving vector store.
	ErrConnection = errors.New("vector store connection failed")
)
