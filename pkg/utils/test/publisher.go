package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/papers/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.Event

	// Err, when set, is returned by Publish after recording the event.
	Err error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event *eventstream.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// Events returns the published events of the given type, or all events
// when eventType is empty.
func (m *MockPublisher) Events(eventType string) []*eventstream.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*eventstream.Event
	for _, e := range m.events {
		if eventType == "" || e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}
