// Package ratelimit wraps an Embedder with a token bucket limiter.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/papers/pkg/embeddings"
)

// Embedder delegates to an inner Embedder at no more than the configured rate.
type Embedder struct {
	inner   embeddings.Embedder
	limiter *rate.Limiter
}

// New wraps inner so that at most requestsPerSecond embeddings are issued,
// with bursts of up to burst requests. A non-positive rate returns inner
// unchanged.
func New(inner embeddings.Embedder, requestsPerSecond float64, burst int) embeddings.Embedder {
	if requestsPerSecond <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}

	return &Embedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Embed waits for a token, then embeds text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for embedding rate limit: %w", err)
	}
	return e.inner.Embed(ctx, text)
}

// Close closes the inner embedder.
func (e *Embedder) Close() error {
	return e.inner.Close()
}
