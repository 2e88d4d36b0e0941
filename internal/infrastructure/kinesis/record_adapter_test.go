package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variantImage(id string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":             events.NewStringAttribute(id),
		"aggregate_id":   events.NewStringAttribute("SKU-1"),
		"aggregate_type": events.NewStringAttribute("Variant"),
		"event_type":     events.NewStringAttribute("InventoryHeld"),
		"data":           events.NewStringAttribute(`{"code":"SKU-1","on_hold":3}`),
		"created_at":     events.NewStringAttribute("2026-01-15T10:30:00.123456789Z"),
		"version":        events.NewNumberAttribute("4"),
	}
}

func kinesisRecord(t *testing.T, seq, eventName string, image map[string]events.DynamoDBAttributeValue) events.KinesisEventRecord {
	t.Helper()
	data, err := json.Marshal(events.DynamoDBEventRecord{
		EventName: eventName,
		Change:    events.DynamoDBStreamRecord{NewImage: image},
	})
	require.NoError(t, err)
	return events.KinesisEventRecord{
		EventID: "shard:" + seq,
		Kinesis: events.KinesisRecord{Data: data, SequenceNumber: seq},
	}
}

func TestEventFromImage(t *testing.T) {
	tests := []struct {
		name    string
		image   map[string]events.DynamoDBAttributeValue
		wantErr bool
	}{
		{name: "valid event", image: variantImage("evt-1")},
		{name: "nil image", image: nil, wantErr: true},
		{
			name:    "missing required fields",
			image:   map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("evt-1")},
			wantErr: true,
		},
		{
			name: "bad timestamp",
			image: func() map[string]events.DynamoDBAttributeValue {
				img := variantImage("evt-1")
				img["created_at"] = events.NewStringAttribute("yesterday")
				return img
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := eventFromImage(tt.image)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "evt-1", event.ID)
			assert.Equal(t, "SKU-1", event.AggregateID)
			assert.Equal(t, "Variant", event.AggregateType)
			assert.Equal(t, "InventoryHeld", event.EventType)
			assert.Equal(t, 4, event.Version)
			assert.Equal(t, time.Date(2026, 1, 15, 10, 30, 0, 123456789, time.UTC), event.Timestamp)
			assert.JSONEq(t, `{"code":"SKU-1","on_hold":3}`, string(event.Data))
		})
	}
}

func TestDecodeRecord_IgnoresNonInserts(t *testing.T) {
	for _, name := range []string{"MODIFY", "REMOVE"} {
		event, err := DecodeRecord(kinesisRecord(t, "1", name, variantImage("evt-1")))
		require.NoError(t, err)
		assert.Nil(t, event)
	}
}

func TestDispatch(t *testing.T) {
	batch := events.KinesisEvent{Records: []events.KinesisEventRecord{
		kinesisRecord(t, "1", "INSERT", variantImage("evt-1")),
		kinesisRecord(t, "2", "MODIFY", variantImage("evt-2")),
		{EventID: "shard:3", Kinesis: events.KinesisRecord{Data: []byte("not json"), SequenceNumber: "3"}},
		kinesisRecord(t, "4", "INSERT", variantImage("evt-fail")),
	}}

	var handled []store.Event
	handler := func(_ context.Context, key, value []byte) error {
		var event store.Event
		require.NoError(t, json.Unmarshal(value, &event))
		assert.Equal(t, "SKU-1", string(key))
		if event.ID == "evt-fail" {
			return errors.New("read store unavailable")
		}
		handled = append(handled, event)
		return nil
	}

	response, errs := Dispatch(context.Background(), batch, handler)

	require.Len(t, handled, 1)
	assert.Equal(t, "evt-1", handled[0].ID)
	assert.Len(t, errs, 2)
	require.Len(t, response.BatchItemFailures, 2)
	assert.Equal(t, "3", response.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, "4", response.BatchItemFailures[1].ItemIdentifier)
}
