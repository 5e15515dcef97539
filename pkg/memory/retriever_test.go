package memory

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	testutils "github.com/lyrebirdhq/mnemo/pkg/utils/test"
	"github.com/lyrebirdhq/mnemo/pkg/vector"
)

var _ = Describe("Retriever", func() {
	var (
		ctx      context.Context
		dense    *testutils.MockVectorDriver
		sparse   *testutils.MockKeywordDriver
		embedder *testutils.MockEmbedder
		retr     *Retriever
		now      time.Time
	)

	addChunk := func(id, text string, emb []float32, createdAt time.Time) {
		meta := map[string]string{metaKind: string(KindVerbatim)}
		if !createdAt.IsZero() {
			meta[metaCreatedAt] = createdAt.UTC().Format(time.RFC3339Nano)
		}
		dense.Documents[id] = vector.Document{
			ID:        id,
			Text:      text,
			Embedding: emb,
			Metadata:  meta,
		}
		sparse.Documents[id] = text
	}

	BeforeEach(func() {
		ctx = context.Background()
		dense = testutils.NewMockVectorDriver()
		sparse = testutils.NewMockKeywordDriver()
		embedder = testutils.NewMockEmbedder()

		retr = NewRetriever(dense, sparse, embedder, RetrieverConfig{}, zap.NewNop())
		now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		retr.now = func() time.Time { return now }
	})

	It("returns nothing for an empty probe set", func() {
		candidates, err := retr.Retrieve(ctx, nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(BeEmpty())
	})

	It("returns nothing when both indexes are empty", func() {
		candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(BeEmpty())
	})

	Describe("reciprocal rank fusion", func() {
		It("sums rank contributions across sources", func() {
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			addChunk("a", "cats are great", []float32{1, 0, 0}, time.Time{})
			addChunk("b", "dogs bark", []float32{0, 1, 0}, time.Time{})

			candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates).To(HaveLen(2))

			// "a" ranks first in both sources: 1/(60+1) from each.
			Expect(candidates[0].ID).To(Equal("a"))
			Expect(candidates[0].RRFScore).To(BeNumerically("~", 2.0/61.0, 1e-9))

			// "b" only appears in the dense list, at rank 2.
			Expect(candidates[1].ID).To(Equal("b"))
			Expect(candidates[1].RRFScore).To(BeNumerically("~", 1.0/62.0, 1e-9))
		})

		It("ranks a chunk found by both sources above one found by a single source", func() {
			embedder.Embeddings["miso"] = []float32{0, 0, 1}
			// "both" is mid-rank dense but also a sparse hit; "denseonly"
			// wins dense rank yet only appears in one list.
			addChunk("denseonly", "something unrelated", []float32{0, 0, 1}, time.Time{})
			addChunk("both", "miso the cat", []float32{0.5, 0, 0.8}, time.Time{})

			candidates, err := retr.Retrieve(ctx, []string{"miso"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates[0].ID).To(Equal("both"))
		})

		It("accumulates contributions from every query variant", func() {
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			embedder.Embeddings["felines"] = []float32{1, 0, 0}
			addChunk("a", "cats are great", []float32{1, 0, 0}, time.Time{})

			candidates, err := retr.Retrieve(ctx, []string{"cats", "felines"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates).To(HaveLen(1))

			// Rank 1 dense for both variants, rank 1 sparse for "cats" only
			// ("felines" matches no stored text).
			Expect(candidates[0].RRFScore).To(BeNumerically("~", 3.0/61.0, 1e-9))
		})
	})

	Describe("recency decay", func() {
		It("leaves chunks without a timestamp unscaled", func() {
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			addChunk("a", "cats are great", []float32{1, 0, 0}, time.Time{})

			candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates[0].FinalScore).To(BeNumerically("~", candidates[0].RRFScore, 1e-9))
		})

		It("gives brand-new chunks the full multiplier", func() {
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			addChunk("a", "cats are great", []float32{1, 0, 0}, now)

			candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates[0].FinalScore).To(BeNumerically("~", candidates[0].RRFScore, 1e-9))
		})

		It("asymptotes to a 0.7 floor for very old chunks", func() {
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			addChunk("old", "cats are great", []float32{1, 0, 0}, now.Add(-1000*24*time.Hour))

			candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates[0].FinalScore).To(BeNumerically("~", 0.7*candidates[0].RRFScore, 1e-6))
		})

		It("prefers the newer of two equally relevant chunks", func() {
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			addChunk("older", "cats are great", []float32{1, 0, 0}, now.Add(-30*24*time.Hour))
			addChunk("newer", "cats are great", []float32{1, 0, 0}, now.Add(-1*time.Minute))

			candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates[0].ID).To(Equal("newer"))
		})
	})

	Describe("degradation", func() {
		It("falls back to sparse results when embedding fails", func() {
			embedder.FailOn = "cats"
			addChunk("a", "cats are great", []float32{1, 0, 0}, time.Time{})

			candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates).To(HaveLen(1))
			Expect(candidates[0].RRFScore).To(BeNumerically("~", 1.0/61.0, 1e-9))
		})

		It("falls back to dense results when sparse search fails", func() {
			sparse.FailSearch = true
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			addChunk("a", "cats are great", []float32{1, 0, 0}, time.Time{})

			candidates, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates).To(HaveLen(1))
		})

		It("propagates a content lookup failure", func() {
			dense.FailGet = true
			embedder.Embeddings["cats"] = []float32{1, 0, 0}
			addChunk("a", "cats are great", []float32{1, 0, 0}, time.Time{})

			_, err := retr.Retrieve(ctx, []string{"cats"}, 10)
			Expect(err).To(HaveOccurred())
		})
	})

	It("truncates to topK after scoring", func() {
		embedder.Embeddings["cats"] = []float32{1, 0, 0}
		addChunk("a", "cats are great", []float32{1, 0, 0}, time.Time{})
		addChunk("b", "cats are fine", []float32{0.9, 0.1, 0}, time.Time{})
		addChunk("c", "cats are loud", []float32{0.8, 0.2, 0}, time.Time{})

		candidates, err := retr.Retrieve(ctx, []string{"cats"}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(2))
	})
})
