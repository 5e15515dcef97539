package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/api/mcp"
	"github.com/lyrebirdhq/mnemo/pkg/memory"
	testutils "github.com/lyrebirdhq/mnemo/pkg/utils/test"
)

var _ = Describe("MCP Server", func() {
	var pipeline *memory.Pipeline

	BeforeEach(func() {
		var err error
		pipeline, err = memory.New(memory.Config{
			Dense:    testutils.NewMockVectorDriver(),
			Sparse:   testutils.NewMockKeywordDriver(),
			Embedder: testutils.NewMockEmbedder(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(pipeline.Close()).To(Succeed())
	})

	Describe("NewServer", func() {
		It("returns an error when the pipeline is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Logger: zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
		})

		It("returns an error when the logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Pipeline: pipeline,
			})
			Expect(err).To(HaveOccurred())
		})

		It("creates a server with valid config", func() {
			server, err := mcp.NewServer(mcp.Config{
				Pipeline: pipeline,
				Logger:   zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{
				Pipeline: pipeline,
				Logger:   zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("creates an empty server in noop mode without a pipeline", func() {
			server, err := mcp.NewServer(mcp.Config{
				Noop: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server).NotTo(BeNil())
		})
	})
})
