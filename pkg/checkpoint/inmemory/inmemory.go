// Package inmemory provides a map-backed checkpoint.Store.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/papers/pkg/checkpoint"
)

// Store implements checkpoint.Store in memory.
type Store struct {
	mu     sync.RWMutex
	values map[string]string

	// writes counts Put calls
	writes int
}

// NewStore creates an empty in-memory checkpoint store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	return v, ok, nil
}

func (s *Store) Put(_ context.Context, name string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[name] = value
	s.writes++
	return nil
}

// Writes returns how many times Put has been called.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

var _ checkpoint.Store = (*Store)(nil)
