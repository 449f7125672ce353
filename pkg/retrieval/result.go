package retrieval

import "context"

// Score conventions reported in Result.ScoreKind.
const (
	// ScoreKindDistance means lower scores are closer matches.
	ScoreKindDistance = "distance"

	// ScoreKindSimilarity means higher scores are closer matches.
	ScoreKindSimilarity = "similarity"
)

// Result is one ranked search hit joined with its paper record.
type Result struct {
	ID string `json:"id"`

	// Score is the value reported by the vector index, unmodified.
	Score     float32 `json:"score"`
	ScoreKind string  `json:"score_kind"`

	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
	Date       string `json:"date"`
	Authors    string `json:"authors"`
	Categories string `json:"categories"`
}

// Searcher answers free text queries with ranked results. It never fails:
// recoverable errors produce an empty result list.
type Searcher interface {
	Search(ctx context.Context, query string, k int) []Result
}
