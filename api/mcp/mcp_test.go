package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/api/mcp"
	"github.com/papercomputeco/recall/pkg/coordinator"
	recalllogger "github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/understanding"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
	"github.com/papercomputeco/recall/pkg/vector/chromem"
)

var _ = Describe("MCP Server", func() {
	var (
		server *mcp.Server
		coord  *coordinator.Coordinator
	)

	BeforeEach(func() {
		logger := recalllogger.Nop()
		client, err := understanding.New(understanding.Config{
			Completer: testutils.NewMockCompleter(),
			Embedder:  testutils.NewMockEmbedder(),
		})
		Expect(err).NotTo(HaveOccurred())

		coord, err = coordinator.New(coordinator.Config{
			Store:        inmemory.NewDriver(),
			Index:        chromem.NewDriver(chromem.Config{}, logger),
			Understander: client,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{
			Coordinator: coord,
			Logger:      logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the coordinator is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: recalllogger.Nop()})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("coordinator is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Coordinator: coord})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates a server with valid config", func() {
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("has no handler when disabled", func() {
			noop, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop.Handler()).To(BeNil())
		})
	})
})
