// Package file provides a checkpoint.Store persisted as a JSON file in the
// .papers/ directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/papercomputeco/papers/pkg/checkpoint"
	"github.com/papercomputeco/papers/pkg/dotdir"
)

const checkpointFile = "checkpoints.json"

// Store implements checkpoint.Store on a JSON file mapping names to values.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store writing to checkpoints.json inside the resolved
// .papers/ directory. overrideDir takes precedence over the default lookup.
func NewStore(overrideDir string) (*Store, error) {
	dir, err := dotdir.NewManager().Ensure(overrideDir)
	if err != nil {
		return nil, err
	}

	return &Store{path: filepath.Join(dir, checkpointFile)}, nil
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}

	v, ok := values[name]
	return v, ok, nil
}

func (s *Store) Put(_ context.Context, name string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[name] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoints: %w", err)
	}

	// Write to a sibling file and rename so a crash never leaves a torn file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing checkpoints: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing checkpoints: %w", err)
	}

	return nil
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading checkpoints: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing checkpoints: %w", err)
	}
	return values, nil
}

var _ checkpoint.Store = (*Store)(nil)
