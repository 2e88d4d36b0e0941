package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Producer publishes stored events. It satisfies store.Publisher.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{
		writer: writer,
		logger: logger.With(zap.String("component", "kafka_producer"), zap.String("topic", topic)),
	}
}

// Publish writes event as JSON keyed by key. Keys hash to a fixed partition,
// which keeps one variant's events in order. The caller's trace context
// travels in the message headers.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	msg, err := newMessage(key, event, time.Now())
	if err != nil {
		return err
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &msg.Headers})

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func newMessage(key string, event any, now time.Time) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  now,
	}
	if e, ok := event.(store.Event); ok {
		msg.Headers = append(msg.Headers,
			kafka.Header{Key: "event_type", Value: []byte(e.EventType)},
			kafka.Header{Key: "aggregate_type", Value: []byte(e.AggregateType)},
		)
	}
	return msg, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
