package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPDispatcher publishes outbox events to a durable RabbitMQ queue. The
// channel is reopened lazily after the broker closes it.
type AMQPDispatcher struct {
	log   *slog.Logger
	conn  *amqp.Connection
	queue string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPDispatcher(log *slog.Logger, url, queue string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	d := &AMQPDispatcher{log: log, conn: conn, queue: queue}
	if _, err := d.channel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *AMQPDispatcher) channel() (*amqp.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch, nil
	}
	ch, err := d.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	d.ch = ch
	return ch, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, event Event) error {
	ch, err := d.channel()
	if err != nil {
		return err
	}

	headers := amqp.Table{"event_type": event.Type}
	for k, v := range event.Headers {
		headers[k] = v
	}
	if event.Traceparent != "" {
		headers["traceparent"] = event.Traceparent
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx, "", d.queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("%s-%d", event.AggregateType, event.ID),
		Type:         event.Type,
		Headers:      headers,
		Body:         event.Payload,
	})
	if err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "err", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type, "queue", d.queue)
	return nil
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ch != nil {
		_ = d.ch.Close()
	}
	return d.conn.Close()
}
