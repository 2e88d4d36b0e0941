package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/ec-inventory/internal/command"
	"github.com/example/ec-inventory/internal/config"
	"github.com/example/ec-inventory/internal/domain/inventory"
	"github.com/example/ec-inventory/internal/infrastructure/kafka"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/logger"
	"github.com/example/ec-inventory/internal/observability"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// The worker applies order lifecycle messages to inventory.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.Setup(ctx, cfg.Otel)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()
	if cfg.Otel.Enabled() {
		log = logger.WithOTel(log)
	}

	var eventStore store.EventStoreInterface
	switch cfg.App.EventStore {
	case "postgres":
		db, err := store.ConnectPostgres(cfg.Postgres.URL, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer db.Close()

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.InventoryTopic, log)
		defer producer.Close()
		eventStore = store.NewPostgresEventStore(db, producer).WithLogger(log)

	case "dynamo":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Dynamo.Region))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		eventStore = store.NewDynamoEventStore(dynamodb.NewFromConfig(awsCfg), cfg.Dynamo.EventsTable, cfg.Dynamo.SnapshotsTable)

	default:
		return fmt.Errorf("worker needs a shared event store, got EVENT_STORE %q", cfg.App.EventStore)
	}

	operator := inventory.NewOperator(log, otel.Meter(config.ServiceName))
	inventorySvc := inventory.NewService(eventStore, operator, log, cfg.Inventory.MaxRetries)
	cmdHandler := command.NewHandler(inventorySvc, log)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.ConsumerGroup+"-worker", log).
		WithRetry(command.Retryable, time.Second)
	defer consumer.Close()

	log.Info("consuming order events",
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.OrderTopic),
		zap.String("event_store", cfg.App.EventStore),
	)
	if err := consumer.Consume(ctx, cmdHandler.HandleOrderEvent); err != nil && ctx.Err() == nil {
		return err
	}

	log.Info("shutting down")
	return nil
}
