package memory

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	testutils "github.com/lyrebirdhq/mnemo/pkg/utils/test"
)

var _ = Describe("QueryProcessor", func() {
	var (
		ctx    context.Context
		caller *testutils.MockCaller
		qp     *QueryProcessor
	)

	BeforeEach(func() {
		ctx = context.Background()
		caller = testutils.NewMockCaller()
		qp = NewQueryProcessor(caller.Call, zap.NewNop())
	})

	Describe("Process", func() {
		It("declines retrieval for gated messages without any model call", func() {
			result := qp.Process(ctx, "okay", "", ProcessOptions{Recontextualize: true, Hyde: true, Decompose: true})

			Expect(result.ShouldRetrieve).To(BeFalse())
			Expect(result.Original).To(Equal("okay"))
			Expect(caller.CallCount()).To(BeZero())
		})

		It("returns the bare query when no model is wired", func() {
			bare := NewQueryProcessor(nil, zap.NewNop())
			result := bare.Process(ctx, "what did I name my cat?", "user: hi", ProcessOptions{Recontextualize: true, Hyde: true, Decompose: true})

			Expect(result.ShouldRetrieve).To(BeTrue())
			Expect(result.Rewritten).To(Equal("what did I name my cat?"))
			Expect(result.Variants()).To(Equal([]string{"what did I name my cat?"}))
		})

		It("rewrites pronoun-laden queries against the conversation context", func() {
			caller.Responses["resolving any pronouns"] = "what did the user say about the job interview"

			result := qp.Process(ctx, "what did I say about it?", "user: my interview is tomorrow", ProcessOptions{Recontextualize: true})

			Expect(result.Rewritten).To(Equal("what did the user say about the job interview"))
			Expect(result.Original).To(Equal("what did I say about it?"))
		})

		It("skips the rewrite for long pronoun-free queries", func() {
			result := qp.Process(ctx, "what did the user mention about the upcoming trip to Portland", "user: hi", ProcessOptions{Recontextualize: true})

			Expect(result.Rewritten).To(Equal("what did the user mention about the upcoming trip to Portland"))
			Expect(caller.CallCount()).To(BeZero())
		})

		It("keeps the original query when the rewrite fails", func() {
			caller.Err = errors.New("model offline")

			result := qp.Process(ctx, "what did I say about it?", "user: context", ProcessOptions{Recontextualize: true})

			Expect(result.ShouldRetrieve).To(BeTrue())
			Expect(result.Rewritten).To(Equal("what did I say about it?"))
		})
	})

	Describe("decomposition", func() {
		It("parses the sub-query array and keeps the original probe", func() {
			caller.Responses["sub-queries"] = `["cat name", "cat adoption date"]`

			result := qp.Process(ctx, "tell me everything about my cat", "", ProcessOptions{Decompose: true})

			Expect(result.SubQueries).To(Equal([]string{
				"tell me everything about my cat",
				"cat name",
				"cat adoption date",
			}))
		})

		It("caps the probe set at four sub-queries", func() {
			caller.Responses["sub-queries"] = `["a", "b", "c", "d", "e"]`

			result := qp.Process(ctx, "a very compound question about many things", "", ProcessOptions{Decompose: true})

			Expect(result.SubQueries).To(HaveLen(4))
		})

		It("falls back to the original on malformed JSON", func() {
			caller.Responses["sub-queries"] = "not json at all"

			result := qp.Process(ctx, "tell me everything about my cat", "", ProcessOptions{Decompose: true})

			Expect(result.SubQueries).To(Equal([]string{"tell me everything about my cat"}))
		})
	})

	Describe("HyDE", func() {
		It("adds the hypothetical document as a probe", func() {
			caller.Responses["hypothetical"] = "The user mentioned adopting a cat named Miso last spring."

			result := qp.Process(ctx, "what pets does the user have", "", ProcessOptions{Hyde: true})

			Expect(result.HydeDocument).To(Equal("The user mentioned adopting a cat named Miso last spring."))
			Expect(result.Variants()).To(ContainElement("The user mentioned adopting a cat named Miso last spring."))
		})

		It("drops the probe when generation fails", func() {
			caller.Err = errors.New("model offline")

			result := qp.Process(ctx, "what pets does the user have", "", ProcessOptions{Hyde: true})

			Expect(result.HydeDocument).To(BeEmpty())
		})
	})

	Describe("Variants", func() {
		It("deduplicates overlapping probes", func() {
			q := ProcessedQuery{
				Rewritten:  "cat name",
				SubQueries: []string{"cat name", "cat breed"},
			}

			Expect(q.Variants()).To(Equal([]string{"cat name", "cat breed"}))
		})

		It("omits empty probes", func() {
			q := ProcessedQuery{Rewritten: "cat name", HydeDocument: ""}
			Expect(q.Variants()).To(Equal([]string{"cat name"}))
		})
	})
})
