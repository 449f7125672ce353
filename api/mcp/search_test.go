package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/retrieval"
)

// recordingSearcher returns fixed results and records its last call.
type recordingSearcher struct {
	results []retrieval.Result
	query   string
	k       int
}

func (r *recordingSearcher) Search(_ context.Context, query string, k int) []retrieval.Result {
	r.query = query
	r.k = k
	return r.results
}

var _ = Describe("arxiv_search tool", func() {
	var (
		ctx      context.Context
		searcher *recordingSearcher
		session  *mcp.ClientSession
	)

	BeforeEach(func() {
		ctx = context.Background()
		searcher = &recordingSearcher{}

		server, err := NewServer(Config{Searcher: searcher, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = serverSession.Close() })

		client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
		session, err = client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = session.Close() })
	})

	It("is listed", func() {
		tools, err := session.ListTools(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(tools.Tools).To(HaveLen(1))
		Expect(tools.Tools[0].Name).To(Equal("arxiv_search"))
	})

	It("returns papers as text blocks in rank order", func() {
		searcher.results = []retrieval.Result{
			{ID: "p7", Title: "Q-Net", Score: 0.91, ScoreKind: retrieval.ScoreKindSimilarity, Date: "2015-02-26"},
			{ID: "p2", Title: "DQN", Score: 0.80, ScoreKind: retrieval.ScoreKindSimilarity},
		}

		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "arxiv_search",
			Arguments: map[string]any{"query": "deep reinforcement learning", "k": 2},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeFalse())
		Expect(searcher.query).To(Equal("deep reinforcement learning"))
		Expect(searcher.k).To(Equal(2))

		Expect(res.Content).To(HaveLen(1))
		text, ok := res.Content[0].(*mcp.TextContent)
		Expect(ok).To(BeTrue())
		Expect(text.Text).To(ContainSubstring("Paper 1\n[Similarity: 0.9100]\nTitle: Q-Net"))
		Expect(text.Text).To(ContainSubstring("Paper 2\n"))
	})

	It("defaults k in the engine when omitted", func() {
		_, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "arxiv_search",
			Arguments: map[string]any{"query": "graphs"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(searcher.k).To(BeZero())
	})

	It("reports an empty result set as text", func() {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "arxiv_search",
			Arguments: map[string]any{"query": "nothing matches"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeFalse())
		Expect(res.Content[0].(*mcp.TextContent).Text).To(Equal("No papers found."))
	})

	It("flags a blank query as a tool error", func() {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "arxiv_search",
			Arguments: map[string]any{"query": "  "},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeTrue())
		Expect(res.Content[0].(*mcp.TextContent).Text).To(Equal("query is required"))
		Expect(searcher.query).To(BeEmpty())
	})
})
