package outbox

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Dispatcher delivers one outbox event to a broker.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaDispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewKafkaDispatcher(log *slog.Logger, producer Producer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{log: log, producer: producer, topic: topic}
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := make([]kafka.Header, 0, len(event.Headers)+2)

	for k, v := range event.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(event.Type)})
	if event.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(event.Traceparent)})
	}

	// Keyed by aggregate so all events of one order land on one partition, in order.
	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "err", err)
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type)
	return nil
}

var ErrPermanent = errors.New("permanent")
