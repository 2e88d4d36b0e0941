package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ec-inventory/internal/config"
	"github.com/example/ec-inventory/internal/email"
	"github.com/example/ec-inventory/internal/infrastructure/kafka"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/logger"
	"github.com/example/ec-inventory/internal/observability"
	"github.com/example/ec-inventory/internal/notification"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	shutdownOtel, err := observability.Setup(ctx, cfg.Otel)
	if err != nil {
		log.Fatal("failed to set up telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()
	if cfg.Otel.Enabled() {
		log = logger.WithOTel(log)
	}

	groupID := cfg.Kafka.ConsumerGroup + "-notifier"
	log.Info("starting notifier",
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.InventoryTopic),
		zap.String("group", groupID),
		zap.String("smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port),
	)

	// Variant names are a nicety; alerts still go out without the read DB.
	var readStore store.ReadStoreInterface
	db, err := store.ConnectPostgres(cfg.Postgres.URL, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		log.Warn("read store unavailable, alerts will show variant codes", zap.Error(err))
	} else {
		defer db.Close()
		readStore = store.NewPostgresReadStore(db, log)
	}

	emailSvc := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	handler := notification.NewHandler(emailSvc, readStore, cfg.SMTP.AlertTo, log)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.InventoryTopic, groupID, log)
	defer consumer.Close()

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Error("consumer error", zap.Error(err))
	}
	log.Info("shutting down")
}
