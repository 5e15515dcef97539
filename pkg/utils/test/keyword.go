package testutils

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lyrebirdhq/mnemo/pkg/keyword"
)

// MockKeywordDriver is an in-memory sparse index for tests, ranking stored
// documents by raw query-term overlap.
type MockKeywordDriver struct {
	Documents map[string]string // id -> text

	FailAdd    bool
	FailSearch bool
}

func NewMockKeywordDriver() *MockKeywordDriver {
	return &MockKeywordDriver{
		Documents: make(map[string]string),
	}
}

func (m *MockKeywordDriver) Add(_ context.Context, docs []keyword.Document) error {
	if m.FailAdd {
		return fmt.Errorf("mock sparse add failure")
	}
	for _, doc := range docs {
		m.Documents[doc.ID] = doc.Text
	}
	return nil
}

func (m *MockKeywordDriver) Search(_ context.Context, query string, topK int) ([]keyword.Result, error) {
	if m.FailSearch {
		return nil, fmt.Errorf("mock sparse search failure")
	}

	terms := strings.Fields(strings.ToLower(query))

	var results []keyword.Result
	for id, text := range m.Documents {
		lower := strings.ToLower(text)
		score := 0.0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			results = append(results, keyword.Result{ID: id, Score: score})
		}
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

func (m *MockKeywordDriver) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.Documents, id)
	}
	return nil
}

func (m *MockKeywordDriver) Count(_ context.Context) (int, error) {
	return len(m.Documents), nil
}

func (m *MockKeywordDriver) Close() error {
	return nil
}

var _ keyword.Driver = (*MockKeywordDriver)(nil)
