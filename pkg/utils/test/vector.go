package testutils

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lyrebirdhq/mnemo/pkg/vector"
)

// MockVectorDriver is an in-memory vector driver for tests. Query ranks
// stored documents by cosine similarity so retrieval ordering is meaningful
// when paired with MockEmbedder's configured embeddings.
type MockVectorDriver struct {
	Documents map[string]vector.Document

	// FailAdd / FailQuery / FailGet force errors from the respective calls.
	FailAdd   bool
	FailQuery bool
	FailGet   bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make(map[string]vector.Document),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.FailAdd {
		return fmt.Errorf("mock dense add failure")
	}
	for _, doc := range docs {
		m.Documents[doc.ID] = doc
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if m.FailQuery {
		return nil, fmt.Errorf("mock dense query failure")
	}

	results := make([]vector.QueryResult, 0, len(m.Documents))
	for _, doc := range m.Documents {
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    cosine(embedding, doc.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	if m.FailGet {
		return nil, fmt.Errorf("mock dense get failure")
	}

	var docs []vector.Document
	for _, id := range ids {
		if doc, ok := m.Documents[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.Documents, id)
	}
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	return len(m.Documents), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ vector.Driver = (*MockVectorDriver)(nil)
