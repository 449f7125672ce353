// Package embeddings
package embeddings

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when asked to embed blank text.
var ErrEmptyInput = errors.New("cannot embed empty text")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
