// Package api provides the HTTP API server for searching papers and
// triggering ingestion.
package api

import (
	"context"
	"net/http"

	"github.com/papercomputeco/papers/pkg/ingest"
	"github.com/papercomputeco/papers/pkg/retrieval"
)

// Ingester runs an ingestion batch on demand. *schedule.Scheduler
// implements it.
type Ingester interface {
	RunNow(ctx context.Context, target int) (*ingest.Summary, error)
}

// ProgressReporter reports ingestion progress. *ingest.Pipeline implements it.
type ProgressReporter interface {
	Status(ctx context.Context) (*ingest.Status, error)
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Searcher answers search requests. Search endpoints return 503 when nil.
	Searcher retrieval.Searcher

	// Ingester and Progress back the ingestion endpoints. Either may be nil
	// when no corpus is configured.
	Ingester Ingester
	Progress ProgressReporter

	// DefaultTargetCount is used when an ingest request omits target_count.
	DefaultTargetCount int

	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler
}
