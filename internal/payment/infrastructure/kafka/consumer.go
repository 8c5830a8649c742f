package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const eventTypeHeader = "event_type"

type OrderProcessor interface {
	Process(ctx context.Context, ev orderdomain.OrderCreated) error
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Consumer reads the order event stream and hands each OrderCreated to the
// simulated gateway. Other event types are committed and skipped.
type Consumer struct {
	log    *slog.Logger
	reader MessageReader
	svc    OrderProcessor
	idem   Deduper
	tracer trace.Tracer
}

func NewOrderReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader MessageReader, svc OrderProcessor, idem Deduper) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("payment-simulator"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		// A failed publish leaves the order pending; it is logged, not retried.
		if err := c.handle(ctx, msg); err != nil {
			c.log.Error("order event processing failed", "offset", msg.Offset, "err", err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	if headerValue(msg.Headers, eventTypeHeader) != orderdomain.EventOrderCreated {
		return nil
	}

	var key string
	if c.idem != nil {
		key = c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
		} else if seen {
			c.log.Info("duplicate message skipped", "key", key)
			return nil
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderCreated")
	defer span.End()

	var ev orderdomain.OrderCreated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.Error("unmarshal failed", "err", err)
		return nil
	}
	if err := c.svc.Process(msgCtx, ev); err != nil {
		span.RecordError(err)
		if key != "" {
			_ = c.idem.Release(context.WithoutCancel(ctx), key)
		}
		return err
	}
	return nil
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
