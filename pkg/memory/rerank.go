package memory

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/rerank"
)

// DefaultMinRelevance is the corrective filtering threshold applied to
// blended scores after reranking.
const DefaultMinRelevance = 0.15

// applyRerank re-scores candidates with a cross-encoder and applies
// corrective filtering.
//
// Each candidate's final score becomes a blend of 40% retrieval score and
// 60% min-max normalized cross-encoder score. Candidates below minRelevance
// are discarded; the survivor set may be smaller than topK and is never
// padded back up. If scoring fails the candidates pass through truncated,
// with no filtering, since there is no rerank score to threshold against.
func applyRerank(ctx context.Context, rr rerank.Reranker, query string, candidates []Candidate, topK int, minRelevance float64, logger *zap.Logger) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	scores, err := rr.Score(ctx, query, texts)
	if err != nil {
		logger.Warn("reranking failed, keeping fusion ordering",
			zap.Error(err),
		)
		return candidates[:topK]
	}

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	reranked := make([]Candidate, 0, len(candidates))
	for i, c := range candidates {
		c.RerankScore = scores[i]

		normalized := 0.5
		if maxScore > minScore {
			normalized = (scores[i] - minScore) / (maxScore - minScore)
		}
		c.FinalScore = 0.4*c.FinalScore + 0.6*normalized

		if c.FinalScore >= minRelevance {
			reranked = append(reranked, c)
		}
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].FinalScore != reranked[j].FinalScore {
			return reranked[i].FinalScore > reranked[j].FinalScore
		}
		if !reranked[i].CreatedAt.Equal(reranked[j].CreatedAt) {
			return reranked[i].CreatedAt.After(reranked[j].CreatedAt)
		}
		return reranked[i].ID < reranked[j].ID
	})

	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}
