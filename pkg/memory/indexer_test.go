package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/eventstream"
	testutils "github.com/lyrebirdhq/mnemo/pkg/utils/test"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	events []*eventstream.ChunksIndexedEvent
}

func (p *capturePublisher) PublishChunksIndexed(_ context.Context, event *eventstream.ChunksIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilIndexEvent
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var errModelOffline = errors.New("model offline")

var _ = Describe("Indexer", func() {
	var (
		ctx      context.Context
		dense    *testutils.MockVectorDriver
		sparse   *testutils.MockKeywordDriver
		embedder *testutils.MockEmbedder
		caller   *testutils.MockCaller
		events   *capturePublisher
	)

	turn := Turn{
		Speaker:   "user",
		Text:      "I adopted a cat named Miso",
		Emotion:   "happy",
		SessionID: "sess1",
		CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	BeforeEach(func() {
		ctx = context.Background()
		dense = testutils.NewMockVectorDriver()
		sparse = testutils.NewMockKeywordDriver()
		embedder = testutils.NewMockEmbedder()
		caller = testutils.NewMockCaller()
		events = &capturePublisher{}
	})

	Describe("IndexTurn", func() {
		It("indexes only the verbatim representation without a model", func() {
			ix := NewIndexer(dense, sparse, embedder, nil, nil, zap.NewNop())

			chunks, err := ix.IndexTurn(ctx, turn, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))

			Expect(chunks[0].ID).To(HaveSuffix("_verbatim"))
			Expect(chunks[0].Kind).To(Equal(KindVerbatim))
			Expect(chunks[0].Text).To(Equal(turn.Text))
			Expect(chunks[0].Emotion).To(Equal("happy"))

			Expect(dense.Documents).To(HaveLen(1))
			Expect(sparse.Documents).To(HaveLen(1))
		})

		It("adds contextual and fact representations when the model cooperates", func() {
			caller.Responses["Return ONLY valid JSON"] = `{"facts":["has a cat named Miso"],"entities":["Miso"],"summary":"User adopted a cat.","emotion_detected":"excited"}`
			caller.Responses["context prefix"] = "[User announcing their new cat to the assistant]"
			ix := NewIndexer(dense, sparse, embedder, caller.Call, nil, zap.NewNop())

			chunks, err := ix.IndexTurn(ctx, turn, "assistant: how was your week?")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(4))

			byID := map[string]Chunk{}
			for _, c := range chunks {
				suffix := c.ID[strings.Index(c.ID, "_"):]
				byID[suffix] = c
			}

			ctxChunk := byID["_ctx0"]
			Expect(ctxChunk.Kind).To(Equal(KindContextual))
			Expect(ctxChunk.Text).To(Equal("[User announcing their new cat to the assistant]\n" + turn.Text))
			Expect(ctxChunk.RawText).To(Equal(turn.Text))

			factChunk := byID["_facts"]
			Expect(factChunk.Kind).To(Equal(KindFact))
			Expect(factChunk.Text).To(Equal("Facts from user: has a cat named Miso"))

			summaryChunk := byID["_summary"]
			Expect(summaryChunk.Kind).To(Equal(KindFact))
			Expect(summaryChunk.Text).To(Equal("User adopted a cat."))
			Expect(summaryChunk.Emotion).To(Equal("excited"))

			Expect(dense.Documents).To(HaveLen(4))
			Expect(sparse.Documents).To(HaveLen(4))
		})

		It("uses a static prefix for the first turn of a conversation", func() {
			caller.Responses["Return ONLY valid JSON"] = `{}`
			ix := NewIndexer(dense, sparse, embedder, caller.Call, nil, zap.NewNop())

			chunks, err := ix.IndexTurn(ctx, turn, "")
			Expect(err).NotTo(HaveOccurred())

			var contextual *Chunk
			for i := range chunks {
				if chunks[i].Kind == KindContextual {
					contextual = &chunks[i]
				}
			}
			Expect(contextual).NotTo(BeNil())
			Expect(contextual.Text).To(HavePrefix("[user speaking at the start of the conversation]"))
		})

		It("degrades to verbatim indexing when every model call fails", func() {
			caller.Err = errModelOffline
			ix := NewIndexer(dense, sparse, embedder, caller.Call, nil, zap.NewNop())

			chunks, err := ix.IndexTurn(ctx, turn, "assistant: hello")
			Expect(err).NotTo(HaveOccurred())

			// Prefix generation falls back to a speaker tag, so contextual
			// chunks still exist; facts do not.
			kinds := map[Kind]int{}
			for _, c := range chunks {
				kinds[c.Kind]++
			}
			Expect(kinds[KindVerbatim]).To(Equal(1))
			Expect(kinds[KindContextual]).To(Equal(1))
			Expect(kinds[KindFact]).To(BeZero())
		})

		It("splits long turns into multiple contextual windows", func() {
			caller.Responses["context prefix"] = "[User telling a long story]"
			caller.Responses["Return ONLY valid JSON"] = `{}`
			ix := NewIndexer(dense, sparse, embedder, caller.Call, nil, zap.NewNop())

			long := turn
			long.Text = strings.Repeat("the story continues. ", 60) // ~1260 chars

			chunks, err := ix.IndexTurn(ctx, long, "assistant: go on")
			Expect(err).NotTo(HaveOccurred())

			contextual := 0
			for _, c := range chunks {
				if c.Kind == KindContextual {
					contextual++
					Expect(c.RawText).NotTo(BeEmpty())
				}
			}
			Expect(contextual).To(BeNumerically(">", 1))
		})

		It("rolls the dense write back when the sparse write fails", func() {
			sparse.FailAdd = true
			ix := NewIndexer(dense, sparse, embedder, nil, nil, zap.NewNop())

			_, err := ix.IndexTurn(ctx, turn, "")
			Expect(err).To(HaveOccurred())
			Expect(dense.Documents).To(BeEmpty())
			Expect(sparse.Documents).To(BeEmpty())
		})

		It("fails when no chunk lands in both indexes", func() {
			dense.FailAdd = true
			ix := NewIndexer(dense, sparse, embedder, nil, nil, zap.NewNop())

			_, err := ix.IndexTurn(ctx, turn, "")
			Expect(err).To(HaveOccurred())
			Expect(sparse.Documents).To(BeEmpty())
		})

		It("assigns distinct chunk IDs to repeated identical turns", func() {
			ix := NewIndexer(dense, sparse, embedder, nil, nil, zap.NewNop())

			first, err := ix.IndexTurn(ctx, turn, "")
			Expect(err).NotTo(HaveOccurred())
			second, err := ix.IndexTurn(ctx, turn, "")
			Expect(err).NotTo(HaveOccurred())

			Expect(first[0].ID).NotTo(Equal(second[0].ID))
			Expect(dense.Documents).To(HaveLen(2))
		})

		It("publishes one event per indexed turn", func() {
			ix := NewIndexer(dense, sparse, embedder, nil, events, zap.NewNop())

			_, err := ix.IndexTurn(ctx, turn, "")
			Expect(err).NotTo(HaveOccurred())

			Expect(events.events).To(HaveLen(1))
			event := events.events[0]
			Expect(event.EventType).To(Equal(eventstream.EventTypeChunksIndexed))
			Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(event.Turn.SessionID).To(Equal("sess1"))
			Expect(event.Chunks).To(HaveLen(1))
			Expect(event.Chunks[0].Kind).To(Equal(string(KindVerbatim)))
		})
	})

	Describe("IndexSessionSummary", func() {
		turns := []Turn{
			{Speaker: "user", Text: "my interview is tomorrow", SessionID: "sess1", CreatedAt: time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)},
			{Speaker: "assistant", Text: "you will do great", SessionID: "sess1", CreatedAt: time.Date(2026, 3, 14, 11, 1, 0, 0, time.UTC)},
			{Speaker: "user", Text: "thanks, I feel better", SessionID: "sess1", CreatedAt: time.Date(2026, 3, 14, 11, 2, 0, 0, time.UTC)},
		}

		It("indexes one summary chunk stamped with the last turn's time", func() {
			caller.Responses["AI companion"] = "The user was anxious about a job interview and felt reassured."
			ix := NewIndexer(dense, sparse, embedder, caller.Call, nil, zap.NewNop())

			chunk, err := ix.IndexSessionSummary(ctx, turns)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).NotTo(BeNil())

			Expect(chunk.ID).To(Equal("session_sess1_summary"))
			Expect(chunk.Kind).To(Equal(KindSummary))
			Expect(chunk.Text).To(Equal("The user was anxious about a job interview and felt reassured."))
			Expect(chunk.CreatedAt).To(Equal(turns[2].CreatedAt))

			Expect(dense.Documents).To(HaveKey("session_sess1_summary"))
		})

		It("skips summarization without a model", func() {
			ix := NewIndexer(dense, sparse, embedder, nil, nil, zap.NewNop())

			chunk, err := ix.IndexSessionSummary(ctx, turns)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).To(BeNil())
			Expect(dense.Documents).To(BeEmpty())
		})

		It("flushes without a summary when the model fails", func() {
			caller.Err = errModelOffline
			ix := NewIndexer(dense, sparse, embedder, caller.Call, nil, zap.NewNop())

			chunk, err := ix.IndexSessionSummary(ctx, turns)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).To(BeNil())
		})
	})
})
