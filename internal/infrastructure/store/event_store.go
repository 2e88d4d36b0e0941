package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrVersionConflict is returned when an append's expected version no longer
// matches the stored stream. Nothing from the batch is persisted.
var ErrVersionConflict = errors.New("event stream version conflict")

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// PendingEvent is an event waiting to be appended. ExpectedVersion is the
// stream version the writer loaded; the new event gets ExpectedVersion+1.
type PendingEvent struct {
	AggregateID     string
	AggregateType   string
	EventType       string
	ExpectedVersion int
	Data            any
}

// Publisher forwards stored events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

func newEvent(p PendingEvent, now time.Time) (Event, error) {
	jsonData, err := json.Marshal(p.Data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   p.AggregateID,
		AggregateType: p.AggregateType,
		EventType:     p.EventType,
		Data:          jsonData,
		Timestamp:     now,
		Version:       p.ExpectedVersion + 1,
	}, nil
}

// publishAll runs after the events are committed, so a broker failure must
// not turn a persisted write into an error the caller would retry. Failures
// are logged and the remaining events are still published. Read models that
// missed an event catch up on the next replay.
func publishAll(ctx context.Context, publisher Publisher, logger *zap.Logger, events []Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		if err := publisher.Publish(ctx, event.AggregateID, event); err != nil {
			logger.Error("failed to publish stored event",
				zap.String("aggregate_id", event.AggregateID),
				zap.String("event_type", event.EventType),
				zap.Int("version", event.Version),
				zap.Error(err),
			)
		}
	}
}

// EventStore keeps events in memory and publishes them after each append.
type EventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	snapshots map[string]*Snapshot
	publisher Publisher
	logger    *zap.Logger
}

func NewEventStore(publisher Publisher) *EventStore {
	return &EventStore{
		events:    make(map[string][]Event),
		snapshots: make(map[string]*Snapshot),
		publisher: publisher,
		logger:    zap.NewNop(),
	}
}

// WithLogger sets the logger that reports publish failures.
func (es *EventStore) WithLogger(logger *zap.Logger) *EventStore {
	es.logger = logger.With(zap.String("component", "event_store"))
	return es
}

// Append stores a single event.
func (es *EventStore) Append(ctx context.Context, pending PendingEvent) (*Event, error) {
	stored, err := es.AppendBatch(ctx, []PendingEvent{pending})
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

// AppendBatch checks every expected version before storing anything.
func (es *EventStore) AppendBatch(ctx context.Context, pending []PendingEvent) ([]Event, error) {
	now := time.Now()

	es.mu.Lock()
	next := make(map[string]int, len(pending))
	for _, p := range pending {
		current, seen := next[p.AggregateID]
		if !seen {
			current = len(es.events[p.AggregateID])
		}
		if current != p.ExpectedVersion {
			es.mu.Unlock()
			return nil, ErrVersionConflict
		}
		next[p.AggregateID] = current + 1
	}

	stored := make([]Event, 0, len(pending))
	for _, p := range pending {
		event, err := newEvent(p, now)
		if err != nil {
			es.mu.Unlock()
			return nil, err
		}
		stored = append(stored, event)
	}
	for _, event := range stored {
		es.events[event.AggregateID] = append(es.events[event.AggregateID], event)
	}
	es.mu.Unlock()

	publishAll(ctx, es.publisher, es.logger, stored)
	return stored, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return es.GetEventsFromVersion(ctx, aggregateID, 0)
}

// GetEventsFromVersion returns the events newer than fromVersion.
func (es *EventStore) GetEventsFromVersion(_ context.Context, aggregateID string, fromVersion int) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var events []Event
	for _, event := range es.events[aggregateID] {
		if event.Version > fromVersion {
			events = append(events, event)
		}
	}
	return events, nil
}

// GetAllEvents returns all events ordered by timestamp.
func (es *EventStore) GetAllEvents(_ context.Context) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var all []Event
	for _, events := range es.events {
		all = append(all, events...)
	}
	sortByTimestamp(all)
	return all, nil
}

func (es *EventStore) SaveSnapshot(_ context.Context, snapshot *Snapshot) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

func (es *EventStore) GetSnapshot(_ context.Context, aggregateID string) (*Snapshot, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.snapshots[aggregateID], nil
}

// sortByTimestamp orders events for replay; ties keep per-aggregate version order.
func sortByTimestamp(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			if events[i].AggregateID == events[j].AggregateID {
				return events[i].Version < events[j].Version
			}
			return events[i].AggregateID < events[j].AggregateID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
