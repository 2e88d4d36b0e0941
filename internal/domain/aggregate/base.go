package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/ec-inventory/internal/infrastructure/store"
)

// Aggregate defines the interface for event-sourced aggregates
type Aggregate interface {
	GetID() string
	GetVersion() int
	SetVersion(int)
	ApplyEvent(store.Event) error
}

// Repository loads and snapshots aggregates of one type. Snapshot state is
// the aggregate's JSON encoding.
type Repository[T Aggregate] struct {
	eventStore    store.EventStoreInterface
	aggregateType string
	newAggregate  func(id string) T
	now           func() time.Time
}

func NewRepository[T Aggregate](eventStore store.EventStoreInterface, aggregateType string, newAggregate func(id string) T) *Repository[T] {
	return &Repository[T]{
		eventStore:    eventStore,
		aggregateType: aggregateType,
		newAggregate:  newAggregate,
		now:           time.Now,
	}
}

// Load rebuilds an aggregate from its latest snapshot plus the events stored
// after it. The boolean reports whether the stream exists at all.
func (r *Repository[T]) Load(ctx context.Context, id string) (T, bool, error) {
	var zero T
	agg := r.newAggregate(id)

	snapshot, err := r.eventStore.GetSnapshot(ctx, id)
	if err != nil {
		return zero, false, fmt.Errorf("failed to get snapshot: %w", err)
	}

	fromVersion := 0
	if snapshot != nil {
		if err := json.Unmarshal(snapshot.State, agg); err != nil {
			return zero, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		agg.SetVersion(snapshot.Version)
		fromVersion = snapshot.Version
	}

	tail, err := r.eventStore.GetEventsFromVersion(ctx, id, fromVersion)
	if err != nil {
		return zero, false, fmt.Errorf("failed to load events: %w", err)
	}
	for _, event := range tail {
		if err := agg.ApplyEvent(event); err != nil {
			return zero, false, fmt.Errorf("failed to apply event %s: %w", event.ID, err)
		}
	}

	return agg, snapshot != nil || len(tail) > 0, nil
}

// SnapshotIfDue saves agg when its version lands on the snapshot threshold
// and reports whether it did.
func (r *Repository[T]) SnapshotIfDue(ctx context.Context, agg T) (bool, error) {
	version := agg.GetVersion()
	if !store.SnapshotDue(version) {
		return false, nil
	}

	state, err := json.Marshal(agg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal aggregate state: %w", err)
	}

	err = r.eventStore.SaveSnapshot(ctx, &store.Snapshot{
		AggregateID:   agg.GetID(),
		AggregateType: r.aggregateType,
		Version:       version,
		State:         state,
		CreatedAt:     r.now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return true, nil
}
