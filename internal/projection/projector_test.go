package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/ec-inventory/internal/domain/inventory"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProjector() (*Projector, *store.ReadStore) {
	readStore := store.NewReadStore()
	return NewProjector(readStore, zap.NewNop()), readStore
}

func makeEvent(t *testing.T, eventType string, version int, data any) []byte {
	t.Helper()
	jsonData, err := json.Marshal(data)
	require.NoError(t, err)
	result, err := json.Marshal(store.Event{
		ID:            "event-123",
		AggregateID:   "SKU-1",
		AggregateType: inventory.AggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Date(2026, 2, 1, 9, 0, version, 0, time.UTC),
		Version:       version,
	})
	require.NoError(t, err)
	return result
}

func variantOf(t *testing.T, rs *store.ReadStore) *readmodel.VariantReadModel {
	t.Helper()
	data, ok := rs.Get(store.CollectionVariants, "SKU-1")
	require.True(t, ok)
	return data.(*readmodel.VariantReadModel)
}

func TestProjector_VariantLifecycle(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()

	steps := [][]byte{
		makeEvent(t, inventory.EventVariantCreated, 1, inventory.VariantCreated{Code: "SKU-1", Name: "Mug", Tracked: true, OnHand: 10}),
		makeEvent(t, inventory.EventInventoryHeld, 2, inventory.InventoryHeld{Code: "SKU-1", Quantity: 3, OnHold: 3}),
		makeEvent(t, inventory.EventInventorySold, 3, inventory.InventorySold{Code: "SKU-1", Quantity: 3, OnHand: 7, OnHold: 0}),
		makeEvent(t, inventory.EventVariantRestocked, 4, inventory.VariantRestocked{Code: "SKU-1", Quantity: 5, OnHand: 12}),
	}
	for _, value := range steps {
		require.NoError(t, projector.HandleEvent(ctx, []byte("SKU-1"), value))
	}

	rm := variantOf(t, readStore)
	assert.Equal(t, "Mug", rm.Name)
	assert.True(t, rm.Tracked)
	assert.Equal(t, 12, rm.OnHand)
	assert.Equal(t, 0, rm.OnHold)
	assert.Equal(t, 12, rm.Available)
	assert.Equal(t, 4, rm.Version)
	assert.Equal(t, time.Date(2026, 2, 1, 9, 0, 4, 0, time.UTC), rm.UpdatedAt)
}

func TestProjector_AvailableNeverNegative(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()

	require.NoError(t, projector.HandleEvent(ctx, nil,
		makeEvent(t, inventory.EventVariantCreated, 1, inventory.VariantCreated{Code: "SKU-1", Tracked: true, OnHand: 2})))
	require.NoError(t, projector.HandleEvent(ctx, nil,
		makeEvent(t, inventory.EventInventoryHeld, 2, inventory.InventoryHeld{Code: "SKU-1", Quantity: 5, OnHold: 5})))

	rm := variantOf(t, readStore)
	assert.Equal(t, 5, rm.OnHold)
	assert.Equal(t, 0, rm.Available)
}

func TestProjector_SkipsRedeliveredEvents(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()

	created := makeEvent(t, inventory.EventVariantCreated, 1, inventory.VariantCreated{Code: "SKU-1", Tracked: true, OnHand: 10})
	held := makeEvent(t, inventory.EventInventoryHeld, 2, inventory.InventoryHeld{Code: "SKU-1", Quantity: 3, OnHold: 3})

	require.NoError(t, projector.HandleEvent(ctx, nil, created))
	require.NoError(t, projector.HandleEvent(ctx, nil, held))
	require.NoError(t, projector.HandleEvent(ctx, nil, created))

	rm := variantOf(t, readStore)
	assert.Equal(t, 3, rm.OnHold)
	assert.Equal(t, 2, rm.Version)
}

func TestProjector_IgnoresOtherAggregates(t *testing.T) {
	projector, readStore := newTestProjector()

	value, err := json.Marshal(store.Event{AggregateID: "order-1", AggregateType: "Order", EventType: "OrderPlaced", Version: 1})
	require.NoError(t, err)

	require.NoError(t, projector.HandleEvent(context.Background(), nil, value))
	assert.Empty(t, readStore.GetAll(store.CollectionVariants))
}

func TestProjector_RejectsMalformedPayloads(t *testing.T) {
	projector, _ := newTestProjector()
	ctx := context.Background()

	assert.Error(t, projector.HandleEvent(ctx, nil, []byte("{")))

	value, err := json.Marshal(store.Event{
		AggregateID: "SKU-1", AggregateType: inventory.AggregateType,
		EventType: inventory.EventInventoryHeld, Data: json.RawMessage(`"not an object"`), Version: 1,
	})
	require.NoError(t, err)
	assert.Error(t, projector.HandleEvent(ctx, nil, value))
}

func TestProjector_Replay(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()
	eventStore := store.NewEventStore(nil)

	_, err := eventStore.AppendBatch(ctx, []store.PendingEvent{
		{AggregateID: "SKU-1", AggregateType: inventory.AggregateType, EventType: inventory.EventVariantCreated,
			ExpectedVersion: 0, Data: inventory.VariantCreated{Code: "SKU-1", Tracked: true, OnHand: 4}},
		{AggregateID: "SKU-1", AggregateType: inventory.AggregateType, EventType: inventory.EventInventoryHeld,
			ExpectedVersion: 1, Data: inventory.InventoryHeld{Code: "SKU-1", Quantity: 1, OnHold: 1}},
	})
	require.NoError(t, err)

	count, err := projector.Replay(ctx, eventStore)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	rm := variantOf(t, readStore)
	assert.Equal(t, 3, rm.Available)
}

func TestProjector_ActsAsPublisher(t *testing.T) {
	projector, readStore := newTestProjector()
	ctx := context.Background()
	eventStore := store.NewEventStore(projector)

	_, err := eventStore.Append(ctx, store.PendingEvent{
		AggregateID: "SKU-1", AggregateType: inventory.AggregateType, EventType: inventory.EventVariantCreated,
		Data: inventory.VariantCreated{Code: "SKU-1", Name: "Mug", Tracked: true, OnHand: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "Mug", variantOf(t, readStore).Name)
	assert.Error(t, projector.Publish(ctx, "SKU-1", "not an event"))
}
