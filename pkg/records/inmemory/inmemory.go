// Package inmemory provides a map-backed records.Driver.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/papers/pkg/paper"
	"github.com/papercomputeco/papers/pkg/records"
)

// Driver implements records.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of records
	mu sync.RWMutex

	// records is keyed by paper id
	records map[string]*paper.Record
}

// NewDriver creates a new in-memory record store.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*paper.Record),
	}
}

func (d *Driver) Exists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.records[id]
	return ok, nil
}

func (d *Driver) Put(_ context.Context, record *paper.Record) (bool, error) {
	if record == nil {
		return false, errors.New("cannot store nil record")
	}
	if record.ID == "" {
		return false, errors.New("cannot store record without id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[record.ID]; ok {
		return false, nil
	}

	stored := *record
	d.records[record.ID] = &stored
	return true, nil
}

func (d *Driver) Get(_ context.Context, id string) (*paper.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.records[id]
	if !ok {
		return nil, records.NotFoundError{ID: id}
	}

	out := *r
	return &out, nil
}

func (d *Driver) BatchGet(_ context.Context, ids []string) (map[string]*paper.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]*paper.Record, len(ids))
	for _, id := range ids {
		if r, ok := d.records[id]; ok {
			cp := *r
			out[id] = &cp
		}
	}
	return out, nil
}

func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records), nil
}

// Delete removes a record. Only used to simulate orphaned vectors in tests.
func (d *Driver) Delete(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, id)
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

var _ records.Driver = (*Driver)(nil)
