package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// maxTransactItems is the DynamoDB limit on items per TransactWriteItems call.
	maxTransactItems = 100

	// Every event also lands in one partition of allEventsIndex for replay.
	allEventsIndex     = "GSI1"
	allEventsPartition = "EVENTS"
)

// DynamoAPI is the subset of the DynamoDB client used by the event store.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoEventStore stores events in DynamoDB.
// Events reach consumers through the table's Kinesis stream integration, so
// no publisher is involved.
type DynamoEventStore struct {
	client            DynamoAPI
	tableName         string
	snapshotTableName string
}

// dynamoEvent is an events table item, keyed by (aggregate_id, version).
type dynamoEvent struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int    `dynamodbav:"version"`
	ID            string `dynamodbav:"id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	CreatedAt     string `dynamodbav:"created_at"`
	GSI1PK        string `dynamodbav:"gsi1pk"`
}

// dynamoSnapshot is a snapshots table item, keyed by aggregate_id.
type dynamoSnapshot struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	Version       int    `dynamodbav:"version"`
	State         string `dynamodbav:"state"`
	CreatedAt     string `dynamodbav:"created_at"`
}

func NewDynamoEventStore(client DynamoAPI, tableName, snapshotTableName string) *DynamoEventStore {
	return &DynamoEventStore{
		client:            client,
		tableName:         tableName,
		snapshotTableName: snapshotTableName,
	}
}

func (es *DynamoEventStore) Append(ctx context.Context, pending PendingEvent) (*Event, error) {
	stored, err := es.AppendBatch(ctx, []PendingEvent{pending})
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

// AppendBatch writes every event in a single transaction. Each put is
// conditional on its (aggregate_id, version) slot being free, which gives
// optimistic locking across writers.
func (es *DynamoEventStore) AppendBatch(ctx context.Context, pending []PendingEvent) ([]Event, error) {
	if len(pending) > maxTransactItems {
		return nil, fmt.Errorf("batch of %d events exceeds the DynamoDB transaction limit", len(pending))
	}

	checked := make(map[string]bool, len(pending))
	for _, p := range pending {
		if checked[p.AggregateID] {
			continue
		}
		current, err := es.currentVersion(ctx, p.AggregateID)
		if err != nil {
			return nil, fmt.Errorf("failed to get current version: %w", err)
		}
		if current != p.ExpectedVersion {
			return nil, ErrVersionConflict
		}
		checked[p.AggregateID] = true
	}

	now := time.Now()
	stored := make([]Event, 0, len(pending))
	items := make([]types.TransactWriteItem, 0, len(pending))
	for _, p := range pending {
		event, err := newEvent(p, now)
		if err != nil {
			return nil, err
		}

		av, err := attributevalue.MarshalMap(toDynamoEvent(event))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event: %w", err)
		}

		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(es.tableName),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(aggregate_id) AND attribute_not_exists(version)"),
			},
		})
		stored = append(stored, event)
	}

	_, err := es.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var cancelled *types.TransactionCanceledException
		if errors.As(err, &cancelled) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to write events: %w", err)
	}

	return stored, nil
}

// currentVersion reads the newest version slot with a consistent read, 0 if none.
func (es *DynamoEventStore) currentVersion(ctx context.Context, aggregateID string) (int, error) {
	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward:     aws.Bool(false), // Descending order
		Limit:                aws.Int32(1),
		ProjectionExpression: aws.String("version"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return 0, err
	}

	if len(result.Items) == 0 {
		return 0, nil
	}

	var item struct {
		Version int `dynamodbav:"version"`
	}
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return 0, err
	}
	return item.Version, nil
}

func (es *DynamoEventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return es.GetEventsFromVersion(ctx, aggregateID, 0)
}

// GetEventsFromVersion returns events for an aggregate newer than fromVersion
func (es *DynamoEventStore) GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error) {
	return es.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :aid AND version > :ver"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateID},
			":ver": &types.AttributeValueMemberN{Value: strconv.Itoa(fromVersion)},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	})
}

// GetAllEvents reads the replay index and orders the result by timestamp.
func (es *DynamoEventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	events, err := es.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String(allEventsIndex),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: allEventsPartition},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	sortByTimestamp(events)
	return events, nil
}

// query follows LastEvaluatedKey until the result set is exhausted
func (es *DynamoEventStore) query(ctx context.Context, input *dynamodb.QueryInput) ([]Event, error) {
	var events []Event
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		page, err := unmarshalEvents(result.Items)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return events, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func unmarshalEvents(items []map[string]types.AttributeValue) ([]Event, error) {
	events := make([]Event, 0, len(items))
	for _, item := range items {
		var de dynamoEvent
		if err := attributevalue.UnmarshalMap(item, &de); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		event, err := de.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func toDynamoEvent(e Event) dynamoEvent {
	return dynamoEvent{
		AggregateID:   e.AggregateID,
		Version:       e.Version,
		ID:            e.ID,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		Data:          string(e.Data),
		CreatedAt:     e.Timestamp.Format(time.RFC3339Nano),
		GSI1PK:        allEventsPartition,
	}
}

func (de dynamoEvent) toEvent() (Event, error) {
	timestamp, err := time.Parse(time.RFC3339Nano, de.CreatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("event %s: bad created_at: %w", de.ID, err)
	}
	return Event{
		ID:            de.ID,
		AggregateID:   de.AggregateID,
		AggregateType: de.AggregateType,
		EventType:     de.EventType,
		Data:          json.RawMessage(de.Data),
		Timestamp:     timestamp,
		Version:       de.Version,
	}, nil
}

// SaveSnapshot overwrites the aggregate's snapshot in the snapshots table
func (es *DynamoEventStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	av, err := attributevalue.MarshalMap(dynamoSnapshot{
		AggregateID:   snapshot.AggregateID,
		AggregateType: snapshot.AggregateType,
		Version:       snapshot.Version,
		State:         string(snapshot.State),
		CreatedAt:     snapshot.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = es.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(es.snapshotTableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot: %w", err)
	}
	return nil
}

func (es *DynamoEventStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	result, err := es.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(es.snapshotTableName),
		Key: map[string]types.AttributeValue{
			"aggregate_id": &types.AttributeValueMemberS{Value: aggregateID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var ds dynamoSnapshot
	if err := attributevalue.UnmarshalMap(result.Item, &ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	// A malformed created_at only loses the timestamp; the state is still usable.
	createdAt, _ := time.Parse(time.RFC3339Nano, ds.CreatedAt)
	return &Snapshot{
		AggregateID:   ds.AggregateID,
		AggregateType: ds.AggregateType,
		Version:       ds.Version,
		State:         json.RawMessage(ds.State),
		CreatedAt:     createdAt,
	}, nil
}
