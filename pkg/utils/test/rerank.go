package testutils

import (
	"context"
	"fmt"
)

// MockReranker fakes a cross-encoder. Scores are looked up by passage text;
// unconfigured passages get DefaultScore.
type MockReranker struct {
	Scores       map[string]float64
	DefaultScore float64

	// Err, when set, makes Score fail.
	Err error
}

func NewMockReranker() *MockReranker {
	return &MockReranker{
		Scores:       make(map[string]float64),
		DefaultScore: 0.5,
	}
}

func (m *MockReranker) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	if m.Err != nil {
		return nil, fmt.Errorf("mock reranker failure: %w", m.Err)
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		if s, ok := m.Scores[text]; ok {
			scores[i] = s
		} else {
			scores[i] = m.DefaultScore
		}
	}
	return scores, nil
}

func (m *MockReranker) Close() error {
	return nil
}
