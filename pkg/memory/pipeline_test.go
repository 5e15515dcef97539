package memory

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	testutils "github.com/lyrebirdhq/mnemo/pkg/utils/test"
)

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		dense    *testutils.MockVectorDriver
		sparse   *testutils.MockKeywordDriver
		embedder *testutils.MockEmbedder
	)

	BeforeEach(func() {
		ctx = context.Background()
		dense = testutils.NewMockVectorDriver()
		sparse = testutils.NewMockKeywordDriver()
		embedder = testutils.NewMockEmbedder()
	})

	newPipeline := func(c Config) *Pipeline {
		if c.Dense == nil {
			c.Dense = dense
		}
		if c.Sparse == nil {
			c.Sparse = sparse
		}
		if c.Embedder == nil {
			c.Embedder = embedder
		}
		p, err := New(c)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("New", func() {
		It("requires the dense driver", func() {
			_, err := New(Config{Sparse: sparse, Embedder: embedder})
			Expect(err).To(HaveOccurred())
		})

		It("requires the sparse driver", func() {
			_, err := New(Config{Dense: dense, Embedder: embedder})
			Expect(err).To(HaveOccurred())
		})

		It("requires the embedder", func() {
			_, err := New(Config{Dense: dense, Sparse: sparse})
			Expect(err).To(HaveOccurred())
		})

		It("generates a session ID when none is given", func() {
			p := newPipeline(Config{})
			defer p.Close()

			stats, err := p.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.SessionID).To(HaveLen(8))
		})
	})

	Describe("Remember and Recall", func() {
		It("surfaces remembered turns in the recall block", func() {
			p := newPipeline(Config{SessionID: "sess1"})

			p.Remember("user", "I adopted a cat named Miso", "")
			p.Remember("assistant", "Miso is a lovely name for a cat", "")
			p.Remember("user", "my sister visited from Portland", "")

			// Close drains the indexing queue so recall sees every turn.
			Expect(p.Close()).To(Succeed())

			block := p.Recall(ctx, "what is the name of the cat", "")

			Expect(block).To(HavePrefix("=== MEMORY ==="))
			Expect(block).To(HaveSuffix("====================="))
			Expect(block).To(ContainSubstring("RELEVANT EXCHANGES:"))
			Expect(block).To(ContainSubstring("user: I adopted a cat named Miso"))
		})

		It("ignores turns with no text", func() {
			p := newPipeline(Config{})

			p.Remember("user", "   ", "")
			Expect(p.Close()).To(Succeed())

			stats, err := p.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalChunks).To(BeZero())
			Expect(stats.SessionTurns).To(BeZero())
		})

		It("returns an empty block when the gate declines", func() {
			p := newPipeline(Config{})
			defer p.Close()

			Expect(p.Recall(ctx, "okay", "")).To(Equal(""))
		})

		It("returns an empty block when nothing is indexed", func() {
			p := newPipeline(Config{})
			defer p.Close()

			Expect(p.Recall(ctx, "what did I name my cat", "")).To(Equal(""))
		})

		It("returns an empty block instead of an error when retrieval fails", func() {
			p := newPipeline(Config{})

			p.Remember("user", "I adopted a cat named Miso", "")
			Expect(p.Close()).To(Succeed())

			dense.FailGet = true
			Expect(p.Recall(ctx, "what did I name my cat", "")).To(Equal(""))
		})

		It("caps the recall set at the configured final size", func() {
			opts := DefaultOptions()
			opts.TopKFinal = 2
			p := newPipeline(Config{Options: opts})

			p.Remember("user", "fact one about the garden", "")
			p.Remember("user", "fact two about the garden", "")
			p.Remember("user", "fact three about the garden", "")
			p.Remember("user", "fact four about the garden", "")
			Expect(p.Close()).To(Succeed())

			block := p.Recall(ctx, "tell me about the garden", "")
			Expect(block).NotTo(BeEmpty())

			entries := 0
			for _, line := range strings.Split(block, "\n") {
				if strings.HasPrefix(line, "  [") {
					entries++
				}
			}
			Expect(entries).To(Equal(2))
		})

		It("falls back to the running conversation context for rewriting", func() {
			caller := testutils.NewMockCaller()
			caller.Responses["resolving any pronouns"] = "what is the name of the cat"

			p := newPipeline(Config{LLM: caller.Call})
			p.Remember("user", "I adopted a cat named Miso", "")
			Expect(p.Close()).To(Succeed())

			_ = p.Recall(ctx, "what about it?", "")

			found := false
			for _, prompt := range caller.Prompts {
				if strings.Contains(prompt, "user: I adopted a cat named Miso") {
					found = true
				}
			}
			Expect(found).To(BeTrue())
		})
	})

	Describe("FlushSession", func() {
		It("starts a fresh session and clears the turn buffer", func() {
			p := newPipeline(Config{SessionID: "sess1"})

			p.Remember("user", "hello there friend", "")
			Expect(p.Close()).To(Succeed())
			Expect(p.FlushSession(ctx)).To(Succeed())

			stats, err := p.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.SessionID).NotTo(Equal("sess1"))
			Expect(stats.SessionTurns).To(BeZero())
			Expect(stats.LastFlush).NotTo(BeZero())
		})

		It("skips the summary for short sessions", func() {
			caller := testutils.NewMockCaller()
			caller.Responses["AI companion"] = "A short chat."

			p := newPipeline(Config{LLM: caller.Call})

			p.Remember("user", "hello there friend", "")
			Expect(p.Close()).To(Succeed())
			Expect(p.FlushSession(ctx)).To(Succeed())

			Expect(dense.Documents).NotTo(HaveKey(HavePrefix("session_")))
		})

		It("indexes a session summary once enough turns accumulate", func() {
			caller := testutils.NewMockCaller()
			caller.Responses["AI companion"] = "They talked about the user's new cat and an upcoming visit."

			p := newPipeline(Config{SessionID: "sess1", LLM: caller.Call})

			p.Remember("user", "I adopted a cat named Miso", "")
			p.Remember("assistant", "Miso is a lovely name", "")
			p.Remember("user", "my sister visits next week", "")
			Expect(p.Close()).To(Succeed())

			Expect(p.FlushSession(ctx)).To(Succeed())

			doc, ok := dense.Documents["session_sess1_summary"]
			Expect(ok).To(BeTrue())
			Expect(doc.Metadata["kind"]).To(Equal(string(KindSummary)))
		})
	})

	Describe("Stats", func() {
		It("reports index sizes and session state", func() {
			p := newPipeline(Config{SessionID: "sess1"})

			p.Remember("user", "I adopted a cat named Miso", "")
			p.Remember("assistant", "Miso is a lovely name", "")
			Expect(p.Close()).To(Succeed())

			stats, err := p.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.SessionID).To(Equal("sess1"))
			Expect(stats.SessionTurns).To(Equal(2))
			Expect(stats.TotalChunks).To(Equal(2))
			Expect(stats.KeywordDocs).To(Equal(2))
		})
	})

	It("tolerates repeated Close calls", func() {
		p := newPipeline(Config{})
		Expect(p.Close()).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})
})
