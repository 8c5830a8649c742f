package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/storefront/internal/payment/application"
	"github.com/dmehra2102/storefront/internal/payment/domain"
	paymentkafka "github.com/dmehra2102/storefront/internal/payment/infrastructure/kafka"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

// payment-simulator stands in for the payment gateway outside production:
// it answers every OrderCreated on the outbox topic with a PaymentResult on
// the payment topic, which storefront-service consumes.
func main() {
	cfg := config.Load("payment-simulator")
	log := logging.New(cfg.ServiceName, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	var dedup paymentkafka.Deduper
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable; duplicates will be answered twice", "err", err)
	} else {
		dedup = idempotency.NewStore(rdb, cfg.IdemTTL)
	}

	writer := outbox.NewKafkaWriter(cfg.KafkaBrokers)
	svc := application.NewService(log, paymentkafka.NewPublisher(writer, cfg.PaymentTopic), domain.Policy{
		Provider:          "simulator",
		Method:            "card",
		DeclineAboveCents: int64(cfg.SimDeclineAbove),
	})
	consumer := paymentkafka.NewConsumer(log,
		paymentkafka.NewOrderReader(cfg.KafkaBrokers, cfg.OutboxTopic, cfg.ServiceName), svc, dedup)

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdown.Drain(log, 10*time.Second,
		shutdown.Step{Name: "kafka-writer", Fn: func(context.Context) error { return writer.Close() }},
		shutdown.Step{Name: "redis", Fn: func(context.Context) error { return rdb.Close() }},
		shutdown.Step{Name: "tracing", Fn: tp.Shutdown},
	)
}
