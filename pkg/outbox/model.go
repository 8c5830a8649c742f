package outbox

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// NewEvent marshals payload into an event ready to be inserted next to the
// aggregate write it describes.
func NewEvent(aggregateType, aggregateID, eventType string, payload any, traceparent string) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       b,
		Headers:       map[string]string{"source": aggregateType},
		Traceparent:   traceparent,
		Status:        StatusPending,
	}, nil
}
