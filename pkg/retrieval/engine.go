// Package retrieval answers similarity queries by embedding the query,
// searching the vector index and joining the hits with the record store.
package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/papers/pkg/embeddings"
	"github.com/papercomputeco/papers/pkg/paper"
	"github.com/papercomputeco/papers/pkg/records"
	"github.com/papercomputeco/papers/pkg/vector"
)

// DefaultK is the number of results returned when k is not positive.
const DefaultK = 3

// Config is the configuration for an Engine.
type Config struct {
	Embedder embeddings.Embedder
	Vectors  vector.Driver
	Records  records.Driver
	Logger   *slog.Logger
}

// Engine implements Searcher over an embedder, a vector index and a
// record store.
type Engine struct {
	embedder embeddings.Embedder
	vectors  vector.Driver
	records  records.Driver
	logger   *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(c *Config) (*Engine, error) {
	switch {
	case c.Embedder == nil:
		return nil, errors.New("embedder is required")
	case c.Vectors == nil:
		return nil, errors.New("vector driver is required")
	case c.Records == nil:
		return nil, errors.New("record store is required")
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		embedder: c.Embedder,
		vectors:  c.Vectors,
		records:  c.Records,
		logger:   logger,
	}, nil
}

// Search returns up to k results in the vector index's rank order. Hits
// whose record is missing are logged and left out. Any failure along the
// way yields an empty list.
func (e *Engine) Search(ctx context.Context, query string, k int) []Result {
	if strings.TrimSpace(query) == "" {
		return []Result{}
	}
	if k <= 0 {
		k = DefaultK
	}

	t0 := time.Now()
	embedding, err := e.embedder.Embed(ctx, query)
	e.logger.Debug("query embedded", "duration", time.Since(t0))
	if err != nil {
		e.logger.Warn("failed to embed query", "error", err)
		return []Result{}
	}

	t1 := time.Now()
	matches, err := e.vectors.Query(ctx, embedding, k)
	e.logger.Debug("vector search finished", "duration", time.Since(t1), "matches", len(matches))
	if err != nil {
		e.logger.Warn("vector search failed", "error", err)
		return []Result{}
	}
	if len(matches) == 0 {
		e.logger.Debug("no matches found", "query", query)
		return []Result{}
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Key != "" {
			ids = append(ids, m.Key)
		}
	}

	t2 := time.Now()
	found, err := e.records.BatchGet(ctx, ids)
	e.logger.Debug("records fetched", "duration", time.Since(t2), "requested", len(ids), "found", len(found))
	if err != nil {
		e.logger.Warn("record lookup failed", "error", err)
		found = nil
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Key == "" {
			continue
		}

		rec, ok := found[m.Key]
		if !ok {
			e.logger.Warn("vector has no matching record, omitting", "id", m.Key)
			continue
		}

		results = append(results, join(m, rec))
	}

	return results
}

// join combines a vector match with its record. A reported distance takes
// precedence over a similarity score.
func join(m vector.Match, rec *paper.Record) Result {
	r := Result{
		ID:         m.Key,
		ScoreKind:  ScoreKindDistance,
		Title:      rec.Title,
		Abstract:   rec.Abstract,
		Date:       rec.Date,
		Authors:    rec.Authors,
		Categories: rec.Categories,
	}

	switch {
	case m.Distance != nil:
		r.Score = *m.Distance
	case m.Score != nil:
		r.Score = *m.Score
		r.ScoreKind = ScoreKindSimilarity
	}

	return r
}

var _ Searcher = (*Engine)(nil)
