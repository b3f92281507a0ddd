package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu            sync.RWMutex
	balanceEvents []*BalanceEvent
	historyEvents []*HistoryEvent
	publishError  error
	closed        bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishBalance records the event and returns any configured error.
func (m *MockPublisher) PublishBalance(ctx context.Context, event *BalanceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.balanceEvents = append(m.balanceEvents, event)
	return nil
}

// PublishHistory records the event and returns any configured error.
func (m *MockPublisher) PublishHistory(ctx context.Context, event *HistoryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.historyEvents = append(m.historyEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// BalanceEvents returns all published balance events (for testing).
func (m *MockPublisher) BalanceEvents() []*BalanceEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]*BalanceEvent, len(m.balanceEvents))
	copy(events, m.balanceEvents)
	return events
}

// HistoryEvents returns all published history events (for testing).
func (m *MockPublisher) HistoryEvents() []*HistoryEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]*HistoryEvent, len(m.historyEvents))
	copy(events, m.historyEvents)
	return events
}

// SetPublishError configures the mock to return an error on publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
