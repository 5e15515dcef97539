// Package inmemory provides a process-local sparse index with TF-IDF scoring.
package inmemory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/keyword"
)

// Driver implements keyword.Driver with an in-process inverted index. It is
// safe for concurrent use.
type Driver struct {
	mu     sync.RWMutex
	docs   map[string][]string          // doc ID -> tokens
	index  map[string]map[string]int    // term -> doc ID -> term frequency
	logger *zap.Logger
}

// New creates an empty in-memory sparse index.
func New(logger *zap.Logger) *Driver {
	return &Driver{
		docs:   make(map[string][]string),
		index:  make(map[string]map[string]int),
		logger: logger,
	}
}

// tokenize lowercases text and splits it on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Add indexes documents, replacing any existing entries with the same ID.
func (d *Driver) Add(_ context.Context, docs []keyword.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		if _, ok := d.docs[doc.ID]; ok {
			d.removeLocked(doc.ID)
		}

		tokens := tokenize(doc.Text)
		d.docs[doc.ID] = tokens

		for _, tok := range tokens {
			postings, ok := d.index[tok]
			if !ok {
				postings = make(map[string]int)
				d.index[tok] = postings
			}
			postings[doc.ID]++
		}
	}

	d.logger.Debug("added documents to in-memory sparse index",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Search scores documents by summed TF-IDF over the query terms.
func (d *Driver) Search(_ context.Context, query string, topK int) ([]keyword.Result, error) {
	if topK <= 0 {
		topK = 10
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	total := len(d.docs)
	if total == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	for _, term := range tokenize(query) {
		postings, ok := d.index[term]
		if !ok {
			continue
		}

		idf := math.Log(1 + float64(total)/float64(len(postings)))
		for id, tf := range postings {
			docLen := len(d.docs[id])
			if docLen == 0 {
				continue
			}
			scores[id] += (float64(tf) / float64(docLen)) * idf
		}
	}

	results := make([]keyword.Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, keyword.Result{ID: id, Score: score})
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

// Delete removes documents by their IDs.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		d.removeLocked(id)
	}

	return nil
}

// removeLocked unindexes a document. Caller holds d.mu.
func (d *Driver) removeLocked(id string) {
	tokens, ok := d.docs[id]
	if !ok {
		return
	}

	for _, tok := range tokens {
		if postings, ok := d.index[tok]; ok {
			delete(postings, id)
			if len(postings) == 0 {
				delete(d.index, tok)
			}
		}
	}

	delete(d.docs, id)
}

// Count returns the number of indexed documents.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs), nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

var _ keyword.Driver = (*Driver)(nil)
