package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	// getEnv treats empty as unset; shield the test from the ambient env.
	for _, key := range []string{"PORT", "KAFKA_BROKERS", "KAFKA_TOPIC_STOCK_EVENTS",
		"DEFAULT_STORE_ID", "ORDER_PAGE_SIZE", "DEFAULT_MIN_STOCK", "ORDER_SNAPSHOT_TTL_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "warehouse-events", cfg.Kafka.TopicStock)
	assert.Equal(t, "main-store", cfg.Business.DefaultStoreID)
	assert.Equal(t, 25, cfg.Business.OrderPageSize)
	assert.Equal(t, 10, cfg.Business.DefaultMinStock)
	assert.Equal(t, 30, cfg.Business.SnapshotTTLSec)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("DEFAULT_MIN_STOCK", "25")
	t.Setenv("ORDER_PAGE_SIZE", "50")
	t.Setenv("DEFAULT_STORE_ID", "branch-2")

	cfg := Load()

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Business.DefaultMinStock)
	assert.Equal(t, 50, cfg.Business.OrderPageSize)
	assert.Equal(t, "branch-2", cfg.Business.DefaultStoreID)
}
