package memory

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	testutils "github.com/lyrebirdhq/mnemo/pkg/utils/test"
)

var _ = Describe("applyRerank", func() {
	var (
		ctx      context.Context
		reranker *testutils.MockReranker
	)

	BeforeEach(func() {
		ctx = context.Background()
		reranker = testutils.NewMockReranker()
	})

	makeCandidates := func(n int, finalScore float64) []Candidate {
		out := make([]Candidate, n)
		for i := range out {
			out[i] = Candidate{
				Chunk:      Chunk{ID: fmt.Sprintf("c%02d", i), Text: fmt.Sprintf("passage %02d", i)},
				FinalScore: finalScore,
			}
		}
		return out
	}

	It("returns nothing for no candidates", func() {
		Expect(applyRerank(ctx, reranker, "q", nil, 5, 0.15, zap.NewNop())).To(BeEmpty())
	})

	It("blends retrieval and cross-encoder scores and filters weak survivors", func() {
		candidates := makeCandidates(10, 0.1)
		for i := 0; i < 10; i++ {
			score := 0.9
			if i >= 7 {
				score = 0.0
			}
			reranker.Scores[fmt.Sprintf("passage %02d", i)] = score
		}

		out := applyRerank(ctx, reranker, "q", candidates, 10, 0.15, zap.NewNop())

		// Min-max normalization maps 0.9 to 1.0 and 0.0 to 0.0; the three
		// weak passages blend to 0.04 and fall below the threshold.
		Expect(out).To(HaveLen(7))
		for _, c := range out {
			Expect(c.RerankScore).To(BeNumerically("~", 0.9, 1e-9))
			Expect(c.FinalScore).To(BeNumerically("~", 0.4*0.1+0.6*1.0, 1e-9))
		}
	})

	It("does not pad the survivor set back up to topK", func() {
		candidates := makeCandidates(6, 0.1)
		for i := 0; i < 6; i++ {
			score := 1.0
			if i > 0 {
				score = 0.0
			}
			reranker.Scores[fmt.Sprintf("passage %02d", i)] = score
		}

		out := applyRerank(ctx, reranker, "q", candidates, 5, 0.15, zap.NewNop())
		Expect(out).To(HaveLen(1))
		Expect(out[0].ID).To(Equal("c00"))
	})

	It("treats uniform cross-encoder scores as neutral evidence", func() {
		candidates := makeCandidates(4, 0.2)
		reranker.DefaultScore = 0.42

		out := applyRerank(ctx, reranker, "q", candidates, 4, 0.15, zap.NewNop())

		Expect(out).To(HaveLen(4))
		for _, c := range out {
			Expect(c.FinalScore).To(BeNumerically("~", 0.4*0.2+0.6*0.5, 1e-9))
		}
	})

	It("truncates to topK after sorting by blended score", func() {
		candidates := makeCandidates(4, 0.5)
		reranker.Scores["passage 00"] = 0.1
		reranker.Scores["passage 01"] = 0.9
		reranker.Scores["passage 02"] = 0.5
		reranker.Scores["passage 03"] = 0.7

		out := applyRerank(ctx, reranker, "q", candidates, 2, 0.15, zap.NewNop())

		Expect(out).To(HaveLen(2))
		Expect(out[0].ID).To(Equal("c01"))
		Expect(out[1].ID).To(Equal("c03"))
	})

	It("passes candidates through unfiltered when scoring fails", func() {
		reranker.Err = errors.New("rerank service down")
		candidates := makeCandidates(6, 0.01)

		out := applyRerank(ctx, reranker, "q", candidates, 4, 0.15, zap.NewNop())

		// No rerank score exists to threshold against, so even weak fusion
		// scores survive.
		Expect(out).To(HaveLen(4))
		Expect(out[0].ID).To(Equal("c00"))
		Expect(out[0].FinalScore).To(BeNumerically("~", 0.01, 1e-9))
	})
})
