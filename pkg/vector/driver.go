// Package vector provides interfaces and implementations for the paper
// vector index.
package vector

import "context"

// Record is one embedded paper as stored in the index.
type Record struct {
	// Key is the paper id. Upserting an existing key replaces its vector.
	Key string

	// Embedding is the vector representation of the paper abstract.
	Embedding []float32

	// Metadata carries filterable attributes such as category and year.
	Metadata map[string]string
}

// Match is a single nearest-neighbor hit. Exactly one of Distance or Score
// is normally set, depending on the backend's convention.
type Match struct {
	Key string

	// Distance is set by backends where lower values are closer.
	Distance *float32

	// Score is set by backends where higher values are closer.
	Score *float32

	Metadata map[string]string
}

// Driver handles storage and nearest-neighbor search of paper vectors.
type Driver interface {
	// Upsert stores records, replacing any existing record with the same key.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK records closest to embedding, closest first.
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)

	// Close releases any resources held by the driver.
	Close() error
}

// Float32 returns a pointer to v. Used to populate Match scores.
func Float32(v float32) *float32 {
	return &v
}
