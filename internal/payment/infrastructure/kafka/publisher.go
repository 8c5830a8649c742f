package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

// Publisher writes payment results keyed by order id, carrying the trace
// context of the order event that triggered them.
type Publisher struct {
	producer outbox.Producer
	topic    string
}

func NewPublisher(producer outbox.Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, res orderdomain.PaymentResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return p.producer.WriteMessages(ctx, kafka.Message{
		Topic:   p.topic,
		Key:     []byte(res.OrderID),
		Value:   b,
		Headers: tracing.InjectKafkaHeaders(ctx, nil),
	})
}
