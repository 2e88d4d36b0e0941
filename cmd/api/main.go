package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/ec-inventory/internal/api"
	"github.com/example/ec-inventory/internal/auth"
	"github.com/example/ec-inventory/internal/command"
	"github.com/example/ec-inventory/internal/config"
	"github.com/example/ec-inventory/internal/domain/inventory"
	"github.com/example/ec-inventory/internal/infrastructure/kafka"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/logger"
	"github.com/example/ec-inventory/internal/observability"
	"github.com/example/ec-inventory/internal/projection"
	"github.com/example/ec-inventory/internal/query"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}

	shutdownOtel, err := observability.Setup(ctx, cfg.Otel)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			log.Warn("failed to flush telemetry", zap.Error(err))
		}
	}()
	if cfg.Otel.Enabled() {
		log = logger.WithOTel(log)
	}

	log.Info("starting api",
		zap.String("env", cfg.App.Env),
		zap.String("event_store", cfg.App.EventStore),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.InventoryTopic),
	)

	var (
		eventStore store.EventStoreInterface
		readStore  store.ReadStoreInterface
		projector  *projection.Projector
		wg         sync.WaitGroup
	)

	switch cfg.App.EventStore {
	case "memory":
		// The projector stands in for Kafka and projects on append.
		readStore = store.NewReadStore()
		projector = projection.NewProjector(readStore, log)
		eventStore = store.NewEventStore(projector).WithLogger(log)

	case "postgres":
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.InventoryTopic, log)
		defer producer.Close()

		readStore = store.NewPostgresReadStore(db, log)
		projector = projection.NewProjector(readStore, log)
		eventStore = store.NewPostgresEventStore(db, producer).WithLogger(log)

		count, err := projector.Replay(ctx, eventStore)
		if err != nil {
			return fmt.Errorf("failed to replay events: %w", err)
		}
		log.Info("read models rebuilt", zap.Int("events", count))

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.InventoryTopic, cfg.Kafka.ConsumerGroup+"-api-projector", log)
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
				log.Error("projection consumer stopped", zap.Error(err))
			}
		}()

	case "dynamo":
		// Read models are fed by the Kinesis projector lambda.
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Dynamo.Region))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		readStore = store.NewPostgresReadStore(db, log)
		eventStore = store.NewDynamoEventStore(dynamodb.NewFromConfig(awsCfg), cfg.Dynamo.EventsTable, cfg.Dynamo.SnapshotsTable)

	default:
		return fmt.Errorf("unknown EVENT_STORE %q", cfg.App.EventStore)
	}

	operator := inventory.NewOperator(log, otel.Meter(config.ServiceName))
	inventorySvc := inventory.NewService(eventStore, operator, log, cfg.Inventory.MaxRetries)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)

	handlers := api.NewHandlers(command.NewHandler(inventorySvc, log), query.NewHandler(readStore), log)
	server := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           api.NewRouter(handlers, jwtService, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.App.HTTPAddr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("shutting down")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	wg.Wait()
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := store.ConnectPostgres(cfg.Postgres.URL, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}
