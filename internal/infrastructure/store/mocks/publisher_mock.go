package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/example/marketflow/internal/infrastructure/store"
)

// MockPublisher records published events for assertions
type MockPublisher struct {
	mu sync.Mutex

	PublishCalls []PublishCall
	PublishErr   error
}

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event store.Event
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{PublishCalls: make([]PublishCall, 0)}
}

// Publish records the call. Envelopes arrive as store.Event; anything else is
// stored with only Data populated.
func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := PublishCall{Key: key}
	switch e := event.(type) {
	case store.Event:
		call.Event = e
	case *store.Event:
		call.Event = *e
	default:
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		call.Event = store.Event{Data: data}
	}
	m.PublishCalls = append(m.PublishCalls, call)

	return m.PublishErr
}

// EventTypes returns the event types in publish order
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, len(m.PublishCalls))
	for i, c := range m.PublishCalls {
		types[i] = c.Event.EventType
	}
	return types
}

// Reset clears recorded calls
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls = make([]PublishCall, 0)
	m.PublishErr = nil
}
