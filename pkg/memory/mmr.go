package memory

import (
	"context"
	"math"

	"go.uber.org/zap"
)

// DefaultMMRLambda favors relevance over diversity while still suppressing
// near-duplicate chunks.
const DefaultMMRLambda = 0.7

// MaxMarginalRelevance greedily selects up to topN candidates balancing
// relevance against redundancy with already-selected chunks:
//
//	mmr = lambda*relevance - (1-lambda)*maxSimilarity(candidate, selected)
//
// Similarity is embedding cosine similarity; candidates missing an embedding
// are re-embedded first. Ties keep the earlier candidate in the incoming
// relevance ordering. If embedding fails, selection degrades to truncation.
func (r *Retriever) MaxMarginalRelevance(ctx context.Context, candidates []Candidate, lambda float64, topN int) []Candidate {
	if len(candidates) == 0 || topN <= 0 {
		return nil
	}
	if topN >= len(candidates) {
		topN = len(candidates)
	}

	if err := r.ensureEmbeddings(ctx, candidates); err != nil {
		r.logger.Warn("mmr embedding failed, degrading to relevance truncation",
			zap.Error(err),
		)
		return candidates[:topN]
	}

	selected := make([]int, 0, topN)
	remaining := make([]bool, len(candidates))
	for i := range remaining {
		remaining[i] = true
	}

	for len(selected) < topN {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for idx, avail := range remaining {
			if !avail {
				continue
			}

			maxSim := 0.0
			for _, sel := range selected {
				sim := cosineSimilarity(candidates[idx].Embedding, candidates[sel].Embedding)
				if sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*candidates[idx].FinalScore - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = idx
			}
		}

		if bestIdx < 0 {
			break
		}
		selected = append(selected, bestIdx)
		remaining[bestIdx] = false
	}

	out := make([]Candidate, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

// ensureEmbeddings backfills missing candidate embeddings in one batch.
func (r *Retriever) ensureEmbeddings(ctx context.Context, candidates []Candidate) error {
	var (
		missing []int
		texts   []string
	)
	for i, c := range candidates {
		if len(c.Embedding) == 0 {
			missing = append(missing, i)
			texts = append(texts, c.Text)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	embs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	for i, idx := range missing {
		candidates[idx].Embedding = embs[i]
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
