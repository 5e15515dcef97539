package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/embeddings"
	"github.com/lyrebirdhq/mnemo/pkg/keyword"
	"github.com/lyrebirdhq/mnemo/pkg/vector"
)

const (
	// DefaultRRFK is the reciprocal rank fusion constant. Higher values
	// flatten the contribution difference between adjacent ranks.
	DefaultRRFK = 60

	// DefaultDecayRate is the per-day recency decay rate.
	DefaultDecayRate = 0.05

	defaultTopKPerSource = 20
)

// Candidate is a retrieved chunk with its scoring trail.
type Candidate struct {
	Chunk

	RRFScore    float64
	RerankScore float64

	// FinalScore starts as the recency-adjusted fusion score and is
	// re-blended by the reranker when one runs.
	FinalScore float64
}

// RetrieverConfig tunes the hybrid retriever. Zero values take defaults.
type RetrieverConfig struct {
	RRFK       int
	DecayRate  float64
	TopKDense  int
	TopKSparse int
}

// Retriever fuses dense and sparse search over every query variant with
// reciprocal rank fusion, then applies recency decay.
type Retriever struct {
	dense    vector.Driver
	sparse   keyword.Driver
	embedder embeddings.Embedder
	logger   *zap.Logger

	rrfK       int
	decayRate  float64
	topKDense  int
	topKSparse int

	now func() time.Time
}

// NewRetriever creates a hybrid retriever over the two indexes.
func NewRetriever(dense vector.Driver, sparse keyword.Driver, embedder embeddings.Embedder, c RetrieverConfig, logger *zap.Logger) *Retriever {
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
	if c.DecayRate <= 0 {
		c.DecayRate = DefaultDecayRate
	}
	if c.TopKDense <= 0 {
		c.TopKDense = defaultTopKPerSource
	}
	if c.TopKSparse <= 0 {
		c.TopKSparse = defaultTopKPerSource
	}

	return &Retriever{
		dense:      dense,
		sparse:     sparse,
		embedder:   embedder,
		logger:     logger,
		rrfK:       c.RRFK,
		decayRate:  c.DecayRate,
		topKDense:  c.TopKDense,
		topKSparse: c.TopKSparse,
		now:        time.Now,
	}
}

// Retrieve runs dense and sparse searches for every variant in parallel,
// fuses the ranked lists, applies recency decay, deduplicates, and returns
// the top topK candidates best first.
//
// A failed search contributes an empty ranked list; fusion proceeds with
// whatever lists exist. Only total unavailability yields an empty result.
//
// The dense store owns chunk content, so it must be reachable to
// materialize fused IDs into candidates: a content lookup failure is
// returned as an error even when sparse search alone produced the ranks.
func (r *Retriever) Retrieve(ctx context.Context, variants []string, topK int) ([]Candidate, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 15
	}

	// Ranked lists land in fixed slots so fusion order is independent of
	// goroutine completion order.
	rankedLists := make([][]string, 2*len(variants))

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(2)

		go func(slot int, q string) {
			defer wg.Done()
			rankedLists[slot] = r.denseSearch(ctx, q)
		}(2*i, variant)

		go func(slot int, q string) {
			defer wg.Done()
			rankedLists[slot] = r.sparseSearch(ctx, q)
		}(2*i+1, variant)
	}
	wg.Wait()

	fused := r.fuse(rankedLists)
	if len(fused) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs, err := r.dense.Get(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := r.now()
	candidates := make([]Candidate, 0, len(docs))
	for _, doc := range docs {
		rrfScore, ok := fused[doc.ID]
		if !ok {
			continue
		}
		c := Candidate{
			Chunk:    chunkFromDocument(doc),
			RRFScore: rrfScore,
		}
		c.FinalScore = rrfScore * r.decayMultiplier(now, c.CreatedAt)
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	r.logger.Debug("retrieved candidates",
		zap.Int("variants", len(variants)),
		zap.Int("candidates", len(candidates)),
	)

	return candidates, nil
}

// denseSearch embeds one query variant and returns chunk IDs in rank order.
func (r *Retriever) denseSearch(ctx context.Context, query string) []string {
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("dense search embedding failed, skipping source",
			zap.Error(err),
		)
		return nil
	}

	results, err := r.dense.Query(ctx, emb, r.topKDense)
	if err != nil {
		r.logger.Warn("dense search failed, skipping source",
			zap.Error(err),
		)
		return nil
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids
}

// sparseSearch returns chunk IDs in rank order for one query variant.
func (r *Retriever) sparseSearch(ctx context.Context, query string) []string {
	results, err := r.sparse.Search(ctx, query, r.topKSparse)
	if err != nil {
		r.logger.Warn("sparse search failed, skipping source",
			zap.Error(err),
		)
		return nil
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids
}

// fuse accumulates reciprocal rank fusion scores: a chunk at rank r in a
// list contributes 1/(k+r), summed across all lists. Rank position alone
// determines contribution, so dense and sparse scales never need calibration.
func (r *Retriever) fuse(rankedLists [][]string) map[string]float64 {
	fused := make(map[string]float64)
	for _, list := range rankedLists {
		for i, id := range list {
			rank := i + 1
			fused[id] += 1.0 / float64(r.rrfK+rank)
		}
	}
	return fused
}

// decayMultiplier boosts recent chunks by up to ~30% and asymptotes to a
// 0.7 floor for arbitrarily old ones; age alone never zeroes a memory.
func (r *Retriever) decayMultiplier(now, createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 1.0
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 0.7 + 0.3*math.Exp(-ageDays*r.decayRate)
}
