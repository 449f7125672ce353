// Package records defines the authoritative paper record store.
package records

import (
	"context"

	"github.com/papercomputeco/papers/pkg/paper"
)

// Driver persists and retrieves paper records keyed by paper id.
type Driver interface {
	// Exists reports whether a record with id is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Put stores a record. Returns true if the record was newly inserted,
	// false if a record with the same id already exists. Records are never
	// overwritten, so an existing id is a no-op.
	Put(ctx context.Context, record *paper.Record) (bool, error)

	// Get retrieves a single record, returning NotFoundError when absent.
	Get(ctx context.Context, id string) (*paper.Record, error)

	// BatchGet retrieves many records in as few round trips as the backend
	// allows. Ids absent from the returned map are missing.
	BatchGet(ctx context.Context, ids []string) (map[string]*paper.Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
