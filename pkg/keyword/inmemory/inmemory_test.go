package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/keyword"
	"github.com/lyrebirdhq/mnemo/pkg/keyword/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	add := func(id, text string) {
		Expect(driver.Add(ctx, []keyword.Document{{ID: id, Text: text}})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.New(zap.NewNop())
	})

	It("returns nothing from an empty index", func() {
		results, err := driver.Search(ctx, "anything", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("matches documents containing query terms", func() {
		add("a", "the cat sat on the mat")
		add("b", "the dog chased the ball")

		results, err := driver.Search(ctx, "cat", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal("a"))
		Expect(results[0].Score).To(BeNumerically(">", 0))
	})

	It("ranks denser term matches higher", func() {
		add("short", "miso sleeps")
		add("long", "miso sleeps in the sun near the big window every single afternoon")

		results, err := driver.Search(ctx, "miso", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("short"))
	})

	It("weights rare terms above common ones", func() {
		add("a", "miso the cat")
		add("b", "the dog and the cat")
		add("c", "the bird and the cat")

		results, err := driver.Search(ctx, "miso cat", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].ID).To(Equal("a"))
	})

	It("tokenizes case-insensitively and past punctuation", func() {
		add("a", "Miso, the cat!")

		results, err := driver.Search(ctx, "MISO", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
	})

	It("replaces a document re-added under the same ID", func() {
		add("a", "all about cats")
		add("a", "all about dogs")

		results, err := driver.Search(ctx, "cats", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())

		results, err = driver.Search(ctx, "dogs", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))

		count, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
	})

	It("truncates results to topK", func() {
		add("a", "garden flowers bloom")
		add("b", "garden weeds spread")
		add("c", "garden paths wind")

		results, err := driver.Search(ctx, "garden", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
	})

	It("removes deleted documents from the index", func() {
		add("a", "the cat sat")
		add("b", "the cat ran")

		Expect(driver.Delete(ctx, []string{"a"})).To(Succeed())

		results, err := driver.Search(ctx, "cat", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal("b"))

		count, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
	})

	It("tolerates deleting unknown IDs", func() {
		Expect(driver.Delete(ctx, []string{"ghost"})).To(Succeed())
	})
})
