package testutils

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/papers/pkg/vector"
)

// MockVectorDriver is an in-memory vector driver. Queries rank stored
// records by L2 distance unless Results is set.
type MockVectorDriver struct {
	mu sync.Mutex

	records map[string]vector.Record

	// UpsertCalls counts records passed to Upsert, including replacements.
	UpsertCalls int

	// Results, when non-nil, is returned by Query (truncated to topK).
	Results []vector.Match

	// FailQuery causes Query to return an error.
	FailQuery bool

	// FailUpsertOn causes Upsert to fail for the given keys.
	FailUpsertOn map[string]bool

	// LastTopK is the topK of the most recent Query.
	LastTopK int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		records:      make(map[string]vector.Record),
		FailUpsertOn: make(map[string]bool),
	}
}

func (m *MockVectorDriver) Upsert(_ context.Context, records []vector.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if m.FailUpsertOn[r.Key] {
			return errors.New("mock upsert failure for: " + r.Key)
		}
	}
	for _, r := range records {
		m.UpsertCalls++
		m.records[r.Key] = r
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastTopK = topK
	if m.FailQuery {
		return nil, errors.New("mock query failure")
	}

	if m.Results != nil {
		if len(m.Results) < topK {
			return m.Results, nil
		}
		return m.Results[:topK], nil
	}

	matches := make([]vector.Match, 0, len(m.records))
	for _, r := range m.records {
		matches = append(matches, vector.Match{
			Key:      r.Key,
			Distance: vector.Float32(l2(embedding, r.Embedding)),
			Metadata: r.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if *matches[i].Distance == *matches[j].Distance {
			return matches[i].Key < matches[j].Key
		}
		return *matches[i].Distance < *matches[j].Distance
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Keys returns the stored keys.
func (m *MockVectorDriver) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the stored record for key.
func (m *MockVectorDriver) Get(key string) (vector.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	return r, ok
}

func (m *MockVectorDriver) Close() error {
	return nil
}

func l2(a, b []float32) float32 {
	var sum float64
	for i := range min(len(a), len(b)) {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

var _ vector.Driver = (*MockVectorDriver)(nil)
