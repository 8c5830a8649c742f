package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/logging"
)

type queueReader struct {
	msgs      chan kafka.Message
	committed chan int64
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *queueReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed <- m.Offset
	}
	return nil
}

func (r *queueReader) Close() error { return nil }

type processed struct{ got chan orderdomain.OrderCreated }

func (p processed) Process(ctx context.Context, ev orderdomain.OrderCreated) error {
	p.got <- ev
	return nil
}

func TestConsumer_OnlyOrderCreated(t *testing.T) {
	reader := &queueReader{msgs: make(chan kafka.Message, 2), committed: make(chan int64, 2)}
	proc := processed{got: make(chan orderdomain.OrderCreated, 2)}
	c := NewConsumer(logging.Discard(), reader, proc, nil)

	body, err := json.Marshal(orderdomain.OrderCreated{OrderID: "o1", TotalCents: 700})
	require.NoError(t, err)
	reader.msgs <- kafka.Message{Offset: 1, Value: []byte(`{}`),
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(orderdomain.EventOrderCancelled)}}}
	reader.msgs <- kafka.Message{Offset: 2, Value: body,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(orderdomain.EventOrderCreated)}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	select {
	case ev := <-proc.got:
		assert.Equal(t, "o1", ev.OrderID)
		assert.Equal(t, int64(700), ev.TotalCents)
	case <-time.After(2 * time.Second):
		t.Fatal("order event not processed")
	}
	assert.Equal(t, int64(1), <-reader.committed)
	assert.Equal(t, int64(2), <-reader.committed)
}

type sink struct{ msgs []kafka.Message }

func (s *sink) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	s := &sink{}
	p := NewPublisher(s, "payment.events")

	require.NoError(t, p.Publish(context.Background(), orderdomain.PaymentResult{OrderID: "o9", Success: true, Ref: "r"}))

	require.Len(t, s.msgs, 1)
	assert.Equal(t, "payment.events", s.msgs[0].Topic)
	assert.Equal(t, "o9", string(s.msgs[0].Key))
	var res orderdomain.PaymentResult
	require.NoError(t, json.Unmarshal(s.msgs[0].Value, &res))
	assert.True(t, res.Success)
}
