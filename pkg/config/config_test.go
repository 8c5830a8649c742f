package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load("storefront-service")

	assert.Equal(t, "storefront-service", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "kafka", cfg.OutboxSink)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Minute, cfg.IdemTTL)
	assert.Equal(t, 5, cfg.CheckoutLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("OUTBOX_SINK", "amqp")
	t.Setenv("CHECKOUT_RATE_LIMIT", "20")
	t.Setenv("CHECKOUT_RATE_PERIOD", "30s")

	cfg := Load("svc")

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "amqp", cfg.OutboxSink)
	assert.Equal(t, 20, cfg.CheckoutLimit)
	assert.Equal(t, 30*time.Second, cfg.CheckoutEvery)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("CHECKOUT_RATE_LIMIT", "lots")
	t.Setenv("IDEMPOTENCY_TTL", "forever")

	cfg := Load("svc")

	assert.Equal(t, 5, cfg.CheckoutLimit)
	assert.Equal(t, 10*time.Minute, cfg.IdemTTL)
}
