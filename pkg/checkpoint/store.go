// Package checkpoint defines the store holding ingestion progress through the
// corpus: a single decimal position per checkpoint name.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultName is the checkpoint name used by the ingestion pipeline.
const DefaultName = "papers/ingestion/checkpoint"

// ErrInvalid is returned when a stored checkpoint is not a non-negative
// decimal integer.
var ErrInvalid = errors.New("invalid checkpoint value")

// Store reads and writes named scalar checkpoint values.
type Store interface {
	// Get returns the stored value for name. ok is false when no value has
	// ever been written.
	Get(ctx context.Context, name string) (value string, ok bool, err error)

	// Put stores value under name, overwriting any previous value.
	Put(ctx context.Context, name string, value string) error
}

// Parse converts a stored checkpoint value into a position.
func Parse(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative position %d", ErrInvalid, n)
	}
	return n, nil
}

// Format converts a position into its stored form.
func Format(position int) string {
	return strconv.Itoa(position)
}

// Load reads the position stored under name. A missing checkpoint is not an
// error: it returns 0 and found=false, meaning "start of corpus".
func Load(ctx context.Context, s Store, name string) (position int, found bool, err error) {
	value, ok, err := s.Get(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}

	position, err = Parse(value)
	if err != nil {
		return 0, false, err
	}
	return position, true, nil
}

// Save writes position under name.
func Save(ctx context.Context, s Store, name string, position int) error {
	if position < 0 {
		return fmt.Errorf("%w: negative position %d", ErrInvalid, position)
	}
	return s.Put(ctx, name, Format(position))
}
