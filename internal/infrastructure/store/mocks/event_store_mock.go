package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-inventory/internal/infrastructure/store"
)

// MockEventStore is an in-memory EventStoreInterface that records writes and
// lets tests inject failures.
type MockEventStore struct {
	*store.EventStore

	mu sync.Mutex

	// For tracking calls in tests
	AppendCalls       []store.PendingEvent
	AppendBatchCalls  int
	SaveSnapshotCalls []*store.Snapshot

	// AppendErr is returned by every append when set.
	AppendErr error
	// ConflictsRemaining makes the next N appends fail with ErrVersionConflict.
	ConflictsRemaining int
	// BeforeAppend runs ahead of each append, e.g. to simulate a concurrent writer.
	BeforeAppend func(ctx context.Context, pending []store.PendingEvent)
	GetSnapshotErr error
	SaveSnapshotErr error
}

// NewMockEventStore creates a new MockEventStore
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{EventStore: store.NewEventStore(nil)}
}

func (m *MockEventStore) Append(ctx context.Context, pending store.PendingEvent) (*store.Event, error) {
	stored, err := m.AppendBatch(ctx, []store.PendingEvent{pending})
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

func (m *MockEventStore) AppendBatch(ctx context.Context, pending []store.PendingEvent) ([]store.Event, error) {
	m.mu.Lock()
	m.AppendBatchCalls++
	m.AppendCalls = append(m.AppendCalls, pending...)
	hook := m.BeforeAppend
	if m.AppendErr != nil {
		err := m.AppendErr
		m.mu.Unlock()
		return nil, err
	}
	if m.ConflictsRemaining > 0 {
		m.ConflictsRemaining--
		m.mu.Unlock()
		return nil, store.ErrVersionConflict
	}
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, pending)
	}
	return m.EventStore.AppendBatch(ctx, pending)
}

func (m *MockEventStore) SaveSnapshot(ctx context.Context, snapshot *store.Snapshot) error {
	m.mu.Lock()
	m.SaveSnapshotCalls = append(m.SaveSnapshotCalls, snapshot)
	err := m.SaveSnapshotErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.EventStore.SaveSnapshot(ctx, snapshot)
}

func (m *MockEventStore) GetSnapshot(ctx context.Context, aggregateID string) (*store.Snapshot, error) {
	m.mu.Lock()
	err := m.GetSnapshotErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.EventStore.GetSnapshot(ctx, aggregateID)
}

// Seed appends events without recording them as calls
func (m *MockEventStore) Seed(ctx context.Context, pending ...store.PendingEvent) error {
	_, err := m.EventStore.AppendBatch(ctx, pending)
	return err
}

// ResetCalls clears recorded calls but keeps stored events
func (m *MockEventStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls = nil
	m.AppendBatchCalls = 0
	m.SaveSnapshotCalls = nil
}
