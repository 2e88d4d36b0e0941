package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("EVENT_STORE", "")
	t.Setenv("OTEL_ENDPOINT", "")

	cfg := Load()

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres", cfg.App.EventStore)
	assert.Equal(t, 3, cfg.Inventory.MaxRetries)
	assert.Equal(t, 300*time.Second, cfg.Postgres.ConnMaxLifetime)
	assert.False(t, cfg.Otel.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EVENT_STORE", "memory")
	t.Setenv("INVENTORY_MAX_RETRIES", "5")
	t.Setenv("LOG_DISABLE_CALLER", "true")
	t.Setenv("OTEL_ENDPOINT", "otel.example.com")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "memory", cfg.App.EventStore)
	assert.Equal(t, 5, cfg.Inventory.MaxRetries)
	assert.True(t, cfg.Logger.DisableCaller)
	assert.True(t, cfg.Otel.Enabled())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("INVENTORY_MAX_RETRIES", "many")
	t.Setenv("LOG_DISABLE_STACKTRACE", "maybe")

	cfg := Load()

	assert.Equal(t, 3, cfg.Inventory.MaxRetries)
	assert.True(t, cfg.Logger.DisableStacktrace)
}
