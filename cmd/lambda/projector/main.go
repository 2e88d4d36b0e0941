package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/ec-inventory/internal/config"
	"github.com/example/ec-inventory/internal/infrastructure/kinesis"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/logger"
	"github.com/example/ec-inventory/internal/projection"
	"go.uber.org/zap"
)

var (
	projector *projection.Projector
	log       *zap.Logger
)

func init() {
	cfg := config.Load()

	var err error
	log, err = logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	log = log.With(zap.String("function", "projector"))

	db, err := store.ConnectPostgres(cfg.Postgres.URL, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}

	projector = projection.NewProjector(store.NewPostgresReadStore(db, log), log)
	log.Info("initialized")
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	response, errs := kinesis.Dispatch(ctx, batch, projector.HandleEvent)
	for _, err := range errs {
		log.Error("failed to project record", zap.Error(err))
	}
	log.Info("processed batch",
		zap.Int("records", len(batch.Records)),
		zap.Int("failed", len(response.BatchItemFailures)),
	)
	return response, nil
}

func main() {
	lambda.Start(handler)
}
