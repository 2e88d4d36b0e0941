package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxRetryBackoff = 30 * time.Second

// MessageHandler processes one message. An error is logged and, unless the
// consumer classifies it as retryable, the message is still committed so a
// poison message cannot stall the partition.
type MessageHandler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader    *kafka.Reader
	topic     string
	tracer    trace.Tracer
	logger    *zap.Logger
	retryable func(error) bool
	backoff   time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader: reader,
		topic:  topic,
		tracer: otel.Tracer(tracerName),
		logger: logger.With(zap.String("component", "kafka_consumer"), zap.String("topic", topic)),
	}
}

// WithRetry hands a message back to the handler for as long as retryable
// reports its error as transient, doubling the wait from backoff up to
// maxRetryBackoff. The offset is committed only after the handler succeeds
// or fails permanently.
func (c *Consumer) WithRetry(retryable func(error) bool, backoff time.Duration) *Consumer {
	if backoff <= 0 {
		backoff = time.Second
	}
	c.retryable = retryable
	c.backoff = backoff
	return c
}

// Consume blocks until ctx is cancelled, handing every message to handler
// and committing its offset afterwards.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			c.logger.Error("failed to read message", zap.Error(err))
			continue
		}

		if err := c.process(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// process handles msg until it succeeds, fails permanently or ctx ends. Only
// the last case returns an error, and the message is then left uncommitted.
func (c *Consumer) process(ctx context.Context, msg kafka.Message, handler MessageHandler) error {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, msg, handler)
		if err == nil || c.retryable == nil || !c.retryable(err) {
			return nil
		}

		c.logger.Warn("retrying message",
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, maxRetryBackoff)
	}
}

// handle runs handler under a consumer span parented on the producer's
// trace context, when the message carries one.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) error {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &msg.Headers})
	msgCtx, span := c.tracer.Start(msgCtx, "kafka.consume "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", c.topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	err := handler(msgCtx, msg.Key, msg.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("failed to handle message",
			zap.ByteString("key", msg.Key),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
	}
	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
