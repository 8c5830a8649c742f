package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const (
	applyAttempts = 3
	applyBackoff  = 200 * time.Millisecond
	// outagePause separates retry rounds while the store stays down.
	outagePause = 5 * time.Second
)

type PaymentApplier interface {
	ApplyPayment(ctx context.Context, res domain.PaymentResult) (domain.Order, error)
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Deduper claims a message key; see idempotency.Store.
type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// PaymentConsumer applies payment-collaborator callbacks delivered on a
// Kafka topic. Delivery is at least once; Redis de-duplicates redeliveries
// and the order state machine absorbs logical duplicates.
type PaymentConsumer struct {
	log    *slog.Logger
	reader MessageReader
	svc    PaymentApplier
	idem   Deduper
	tracer trace.Tracer

	backoff time.Duration
	pause   time.Duration
}

func NewPaymentReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewPaymentConsumer(log *slog.Logger, reader MessageReader, svc PaymentApplier, idem Deduper) *PaymentConsumer {
	return &PaymentConsumer{
		log:    log,
		reader: reader,
		svc:    svc,
		idem:    idem,
		tracer:  otel.Tracer("payment-consumer"),
		backoff: applyBackoff,
		pause:   outagePause,
	}
}

func (c *PaymentConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.handle(ctx, msg); err != nil {
			// Stopped mid-outage: the offset stays uncommitted and the
			// next group session fetches it again.
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

// handle returns an error only when the result could not be applied and
// must not be committed. Malformed payloads and rule violations are final.
func (c *PaymentConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var key string
	if c.idem != nil {
		key = c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Warn("idempotency check failed, processing anyway", "key", key, "err", err)
		} else if seen {
			c.log.Info("duplicate message skipped", "key", key)
			return nil
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumePaymentResult")
	defer span.End()

	var res domain.PaymentResult
	if err := json.Unmarshal(msg.Value, &res); err != nil {
		c.log.Error("unmarshal payment result failed", "offset", msg.Offset, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad payload")
		return nil
	}
	span.SetAttributes(attribute.String("order.id", res.OrderID), attribute.Bool("payment.success", res.Success))

	// Internal failures block the partition: later results for the same
	// order must not overtake this one.
	for round := 1; ; round++ {
		err := c.apply(msgCtx, res)
		switch {
		case err == nil:
			c.log.Info("payment result processed", "order_id", res.OrderID, "success", res.Success)
			return nil
		case apperr.Classify(err) != apperr.ClassInternal:
			c.log.Warn("payment result rejected", "order_id", res.OrderID, "err", err)
			return nil
		}

		span.RecordError(err)
		c.log.Error("payment result failed, will retry", "order_id", res.OrderID, "round", round, "err", err)
		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "apply payment interrupted")
			if key != "" {
				if rerr := c.idem.Release(context.WithoutCancel(ctx), key); rerr != nil {
					c.log.Warn("idempotency release failed", "key", key, "err", rerr)
				}
			}
			return errors.Join(err, ctx.Err())
		case <-time.After(c.pause):
		}
	}
}

// apply retries transient failures; rule violations are final.
func (c *PaymentConsumer) apply(ctx context.Context, res domain.PaymentResult) error {
	var err error
	for attempt := 1; attempt <= applyAttempts; attempt++ {
		_, err = c.svc.ApplyPayment(ctx, res)
		if err == nil || apperr.Classify(err) != apperr.ClassInternal {
			return err
		}
		if attempt == applyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return err
}
