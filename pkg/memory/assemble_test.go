package memory

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Assemble", func() {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	It("returns an empty string for no candidates", func() {
		Expect(Assemble(nil, now)).To(Equal(""))
		Expect(Assemble([]Candidate{}, now)).To(Equal(""))
	})

	It("frames the block and groups candidates by kind", func() {
		candidates := []Candidate{
			{Chunk: Chunk{
				Kind:      KindVerbatim,
				Speaker:   "user",
				Text:      "I adopted a cat named Miso",
				CreatedAt: now.Add(-30 * time.Second),
			}},
			{Chunk: Chunk{
				Kind:      KindFact,
				Text:      "Facts from user: has a cat named Miso",
				CreatedAt: now.Add(-3 * time.Hour),
			}},
			{Chunk: Chunk{
				Kind:      KindSummary,
				Text:      "They talked about pets and the user's new cat.",
				CreatedAt: now.Add(-2 * 24 * time.Hour),
			}},
		}

		block := Assemble(candidates, now)

		Expect(block).To(HavePrefix("=== MEMORY ===\n"))
		Expect(block).To(HaveSuffix("\n====================="))
		Expect(block).To(ContainSubstring("PAST SESSION HIGHLIGHTS:\n  [2d ago] They talked about pets and the user's new cat."))
		Expect(block).To(ContainSubstring("RELEVANT FACTS:\n  [3h ago] Facts from user: has a cat named Miso"))
		Expect(block).To(ContainSubstring("RELEVANT EXCHANGES:\n  [just now] user: I adopted a cat named Miso"))

		// Summaries always lead, exchanges always trail.
		Expect(strings.Index(block, "PAST SESSION HIGHLIGHTS")).To(BeNumerically("<", strings.Index(block, "RELEVANT FACTS")))
		Expect(strings.Index(block, "RELEVANT FACTS")).To(BeNumerically("<", strings.Index(block, "RELEVANT EXCHANGES")))
	})

	It("omits sections with no members", func() {
		candidates := []Candidate{
			{Chunk: Chunk{
				Kind:      KindFact,
				Text:      "works as a florist",
				CreatedAt: now.Add(-10 * time.Minute),
			}},
		}

		block := Assemble(candidates, now)
		Expect(block).To(ContainSubstring("RELEVANT FACTS"))
		Expect(block).NotTo(ContainSubstring("PAST SESSION HIGHLIGHTS"))
		Expect(block).NotTo(ContainSubstring("RELEVANT EXCHANGES"))
	})

	It("orders entries within a section newest first", func() {
		candidates := []Candidate{
			{Chunk: Chunk{Kind: KindFact, Text: "older fact", CreatedAt: now.Add(-2 * time.Hour)}},
			{Chunk: Chunk{Kind: KindFact, Text: "newer fact", CreatedAt: now.Add(-5 * time.Minute)}},
		}

		block := Assemble(candidates, now)
		Expect(strings.Index(block, "newer fact")).To(BeNumerically("<", strings.Index(block, "older fact")))
	})

	It("shows contextual chunks without their situating prefix", func() {
		candidates := []Candidate{
			{Chunk: Chunk{
				Kind:      KindContextual,
				Speaker:   "user",
				Text:      "[User discussing pets]\nthe vet visit went fine",
				RawText:   "the vet visit went fine",
				CreatedAt: now.Add(-1 * time.Minute),
			}},
		}

		block := Assemble(candidates, now)
		Expect(block).To(ContainSubstring("user: the vet visit went fine"))
		Expect(block).NotTo(ContainSubstring("[User discussing pets]"))
	})

	It("tags exchanges with an unknown speaker fallback", func() {
		candidates := []Candidate{
			{Chunk: Chunk{Kind: KindVerbatim, Text: "hello there", CreatedAt: now}},
		}

		Expect(Assemble(candidates, now)).To(ContainSubstring("unknown: hello there"))
	})
})

var _ = Describe("ageDescription", func() {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	It("buckets ages into human-readable spans", func() {
		Expect(ageDescription(now, now)).To(Equal("just now"))
		Expect(ageDescription(now, now.Add(-90*time.Second))).To(Equal("just now"))
		Expect(ageDescription(now, now.Add(-5*time.Minute))).To(Equal("5m ago"))
		Expect(ageDescription(now, now.Add(-3*time.Hour))).To(Equal("3h ago"))
		Expect(ageDescription(now, now.Add(-49*time.Hour))).To(Equal("2d ago"))
		Expect(ageDescription(now, now.Add(-15*24*time.Hour))).To(Equal("2w ago"))
	})
})
