// Package rerank defines the cross-encoder scoring capability.
package rerank

import "context"

// Reranker scores query/passage pairs with a cross-encoder model.
type Reranker interface {
	// Score returns one relevance score per text, in input order. Scores
	// are on the model's native scale; callers normalize before blending.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)

	// Close releases any resources held by the reranker.
	Close() error
}
