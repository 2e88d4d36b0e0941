package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/ec-inventory/internal/infrastructure/store"
)

// EventHandler has the same shape as a Kafka message handler, so projectors
// and notifiers serve both transports unchanged.
type EventHandler func(ctx context.Context, key, value []byte) error

// DecodeRecord turns a Kinesis record carrying a DynamoDB stream change into
// a stored event. Only INSERTs are events; other changes yield nil, nil.
func DecodeRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	if change.EventName != string(events.DynamoDBOperationTypeInsert) {
		return nil, nil
	}
	return eventFromImage(change.Change.NewImage)
}

func eventFromImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, errors.New("DynamoDB image is nil")
	}

	str := func(name string) string {
		if v, ok := image[name]; ok && v.DataType() == events.DataTypeString {
			return v.String()
		}
		return ""
	}

	event := &store.Event{
		ID:            str("id"),
		AggregateID:   str("aggregate_id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
		Data:          json.RawMessage(str("data")),
	}
	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("missing required fields: id=%q aggregate_id=%q event_type=%q",
			event.ID, event.AggregateID, event.EventType)
	}

	if createdAt := str("created_at"); createdAt != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		event.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse version: %w", err)
		}
		event.Version = int(version)
	}

	return event, nil
}

// Dispatch decodes every record and passes each event to handler as JSON
// keyed by aggregate id. Records that fail to decode or handle are returned
// as batch item failures so Lambda retries only those.
func Dispatch(ctx context.Context, batch events.KinesisEvent, handler EventHandler) (events.KinesisEventResponse, []error) {
	var response events.KinesisEventResponse
	var errs []error

	fail := func(record events.KinesisEventRecord, err error) {
		errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
		response.BatchItemFailures = append(response.BatchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range batch.Records {
		event, err := DecodeRecord(record)
		if err != nil {
			fail(record, err)
			continue
		}
		if event == nil {
			continue
		}

		value, err := json.Marshal(event)
		if err != nil {
			fail(record, err)
			continue
		}
		if err := handler(ctx, []byte(event.AggregateID), value); err != nil {
			fail(record, err)
		}
	}

	return response, errs
}
