package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/papers/pkg/retrieval"
)

var (
	searchToolName    = "arxiv_search"
	searchDescription = "Search arXiv papers by meaning. Returns the closest papers to the query with their title, date, authors and abstract."
)

// SearchInput represents the input arguments for the arxiv_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text describing the papers to find"`
	K     int    `json:"k,omitempty" jsonschema:"number of papers to return (default: 3)"`
}

// SearchOutput represents the output of the arxiv_search tool.
type SearchOutput struct {
	Query   string             `json:"query"`
	Results []retrieval.Result `json:"results"`
	Count   int                `json:"count"`
}

// handleSearch processes an arxiv_search call. Retrieval failures surface
// as an empty result, never as a tool error.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "query is required"},
			},
		}, SearchOutput{Query: input.Query, Results: []retrieval.Result{}}, nil
	}

	s.config.Logger.Debug("MCP search request", "query", input.Query, "k", input.K)

	results := s.config.Searcher.Search(ctx, input.Query, input.K)
	if results == nil {
		results = []retrieval.Result{}
	}
	output := SearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: retrieval.FormatText(results)},
		},
	}, output, nil
}
