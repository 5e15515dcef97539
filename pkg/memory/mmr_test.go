package memory

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	testutils "github.com/lyrebirdhq/mnemo/pkg/utils/test"
)

var _ = Describe("MaxMarginalRelevance", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		retr     *Retriever
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		retr = NewRetriever(
			testutils.NewMockVectorDriver(),
			testutils.NewMockKeywordDriver(),
			embedder,
			RetrieverConfig{},
			zap.NewNop(),
		)
	})

	It("returns nothing for empty input", func() {
		Expect(retr.MaxMarginalRelevance(ctx, nil, 0.7, 5)).To(BeEmpty())
		Expect(retr.MaxMarginalRelevance(ctx, []Candidate{{}}, 0.7, 0)).To(BeEmpty())
	})

	It("suppresses near-duplicates in favor of diverse chunks", func() {
		candidates := []Candidate{
			{Chunk: Chunk{ID: "a", Embedding: []float32{1, 0, 0}}, FinalScore: 1.0},
			{Chunk: Chunk{ID: "a2", Embedding: []float32{1, 0, 0}}, FinalScore: 0.9},
			{Chunk: Chunk{ID: "b", Embedding: []float32{0, 1, 0}}, FinalScore: 0.5},
		}

		out := retr.MaxMarginalRelevance(ctx, candidates, 0.7, 2)

		// After "a" is taken, its duplicate scores 0.7*0.9-0.3*1.0 = 0.33
		// while the orthogonal chunk scores 0.7*0.5 = 0.35.
		Expect(out).To(HaveLen(2))
		Expect(out[0].ID).To(Equal("a"))
		Expect(out[1].ID).To(Equal("b"))
	})

	It("keeps pure relevance order when lambda is 1", func() {
		candidates := []Candidate{
			{Chunk: Chunk{ID: "a", Embedding: []float32{1, 0, 0}}, FinalScore: 1.0},
			{Chunk: Chunk{ID: "a2", Embedding: []float32{1, 0, 0}}, FinalScore: 0.9},
			{Chunk: Chunk{ID: "b", Embedding: []float32{0, 1, 0}}, FinalScore: 0.5},
		}

		out := retr.MaxMarginalRelevance(ctx, candidates, 1.0, 2)
		Expect(out[0].ID).To(Equal("a"))
		Expect(out[1].ID).To(Equal("a2"))
	})

	It("breaks ties toward the earlier candidate", func() {
		candidates := []Candidate{
			{Chunk: Chunk{ID: "first", Embedding: []float32{1, 0, 0}}, FinalScore: 0.8},
			{Chunk: Chunk{ID: "second", Embedding: []float32{0, 1, 0}}, FinalScore: 0.8},
		}

		out := retr.MaxMarginalRelevance(ctx, candidates, 0.7, 1)
		Expect(out[0].ID).To(Equal("first"))
	})

	It("returns everything when topN covers the candidate set", func() {
		candidates := []Candidate{
			{Chunk: Chunk{ID: "a", Embedding: []float32{1, 0, 0}}, FinalScore: 1.0},
			{Chunk: Chunk{ID: "b", Embedding: []float32{0, 1, 0}}, FinalScore: 0.5},
		}

		out := retr.MaxMarginalRelevance(ctx, candidates, 0.7, 10)
		Expect(out).To(HaveLen(2))
	})

	It("backfills missing embeddings before selecting", func() {
		embedder.Embeddings["duplicate passage"] = []float32{1, 0, 0}
		candidates := []Candidate{
			{Chunk: Chunk{ID: "a", Embedding: []float32{1, 0, 0}}, FinalScore: 1.0},
			{Chunk: Chunk{ID: "dup", Text: "duplicate passage"}, FinalScore: 0.9},
			{Chunk: Chunk{ID: "b", Embedding: []float32{0, 1, 0}}, FinalScore: 0.5},
		}

		out := retr.MaxMarginalRelevance(ctx, candidates, 0.7, 2)
		Expect(out[0].ID).To(Equal("a"))
		Expect(out[1].ID).To(Equal("b"))
	})

	It("degrades to relevance truncation when embedding fails", func() {
		embedder.FailOn = "unreachable passage"
		candidates := []Candidate{
			{Chunk: Chunk{ID: "a", Embedding: []float32{1, 0, 0}}, FinalScore: 1.0},
			{Chunk: Chunk{ID: "x", Text: "unreachable passage"}, FinalScore: 0.9},
			{Chunk: Chunk{ID: "b", Embedding: []float32{0, 1, 0}}, FinalScore: 0.5},
		}

		out := retr.MaxMarginalRelevance(ctx, candidates, 0.7, 2)
		Expect(out).To(HaveLen(2))
		Expect(out[0].ID).To(Equal("a"))
		Expect(out[1].ID).To(Equal("x"))
	})
})
