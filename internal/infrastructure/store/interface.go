package store

import "context"

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, pending PendingEvent) (*Event, error)
	// AppendBatch stores all events or none of them.
	AppendBatch(ctx context.Context, pending []PendingEvent) ([]Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)

	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
	// GetSnapshot returns nil, nil when the aggregate has no snapshot.
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
}
