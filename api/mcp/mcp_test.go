package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docq/api/mcp"
	docqlogger "github.com/papercomputeco/docq/pkg/logger"
	"github.com/papercomputeco/docq/pkg/query"
	"github.com/papercomputeco/docq/pkg/storage/inmemory"
)

var _ = Describe("MCP Server", func() {
	var (
		server *mcp.Server
		svc    *query.Service
	)

	BeforeEach(func() {
		var err error
		svc, err = query.NewService(query.Config{Driver: inmemory.NewDriver()})
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{
			Query:  svc,
			Logger: docqlogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the query service is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: docqlogger.Nop()})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("query service is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Query: svc})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates an empty server when noop", func() {
			noop, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})
})
