package retrieval

import (
	"fmt"
	"strings"
)

const blockSeparator = "--------------------"

// FormatText renders results as numbered "Paper N" blocks in rank order,
// the plain text shape handed to conversational agents.
func FormatText(results []Result) string {
	if len(results) == 0 {
		return "No papers found."
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Paper %d\n", i+1)
		fmt.Fprintf(&b, "[%s: %.4f]\n", scoreLabel(r.ScoreKind), r.Score)
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Date: %s\n", r.Date)
		fmt.Fprintf(&b, "Authors: %s\n", r.Authors)
		fmt.Fprintf(&b, "Abstract: %s\n", strings.TrimSpace(r.Abstract))
		b.WriteString(blockSeparator)
		b.WriteString("\n")
	}
	return b.String()
}

func scoreLabel(kind string) string {
	if kind == ScoreKindSimilarity {
		return "Similarity"
	}
	return "Distance"
}
