// Package tei implements pkg/rerank's Reranker against a Text Embeddings
// Inference server's /rerank endpoint.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/rerank"
)

// DefaultBaseURL is the default TEI server URL.
const DefaultBaseURL = "http://localhost:8080"

// Reranker wraps a TEI cross-encoder server.
type Reranker struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the TEI reranker.
type Config struct {
	// BaseURL is the TEI server URL. Defaults to DefaultBaseURL if empty.
	BaseURL string
}

// rerankRequest is the request body for TEI's /rerank endpoint.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one entry of TEI's /rerank response. Results come back
// sorted by score, with Index pointing into the request's texts.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// New creates a reranker backed by a TEI server.
func New(c Config, logger *zap.Logger) (*Reranker, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Reranker{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// Score returns one cross-encoder score per text, in input order.
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{
		Query: query,
		Texts: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/rerank", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank server returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}

	scores := make([]float64, len(texts))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(texts) {
			return nil, fmt.Errorf("rerank result index %d out of range", res.Index)
		}
		scores[res.Index] = res.Score
	}

	r.logger.Debug("scored passages",
		zap.Int("count", len(texts)),
	)

	return scores, nil
}

// Close releases resources held by the reranker.
func (r *Reranker) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ rerank.Reranker = (*Reranker)(nil)
