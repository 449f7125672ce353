package mcp_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/papers/api/mcp"
	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/retrieval"
)

type staticSearcher struct{}

func (staticSearcher) Search(context.Context, string, int) []retrieval.Result {
	return nil
}

var _ = Describe("MCP Server", func() {
	Describe("NewServer", func() {
		It("returns an error when searcher is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("searcher is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Searcher: staticSearcher{}})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("creates a noop server without collaborators", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{Searcher: staticSearcher{}, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})
})
