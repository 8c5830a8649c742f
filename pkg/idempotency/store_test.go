package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, time.Minute)

	assert.Equal(t, "idem:payment.events:3:42", s.Key("payment.events", 3, 42))
	assert.NotEqual(t, s.Key("payment.events", 0, 1), s.Key("payment.events", 1, 0))
}
