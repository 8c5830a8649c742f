package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/payment/domain"
	"github.com/dmehra2102/storefront/pkg/logging"
)

type capture struct {
	got []orderdomain.PaymentResult
	err error
}

func (c *capture) Publish(ctx context.Context, res orderdomain.PaymentResult) error {
	if c.err != nil {
		return c.err
	}
	c.got = append(c.got, res)
	return nil
}

func TestService_Process(t *testing.T) {
	pub := &capture{}
	svc := NewService(logging.Discard(), pub, domain.Policy{Provider: "sim", DeclineAboveCents: 500})

	require.NoError(t, svc.Process(context.Background(), orderdomain.OrderCreated{OrderID: "o1", TotalCents: 400}))
	require.NoError(t, svc.Process(context.Background(), orderdomain.OrderCreated{OrderID: "o2", TotalCents: 900}))

	require.Len(t, pub.got, 2)
	assert.True(t, pub.got[0].Success)
	assert.False(t, pub.got[1].Success)
	assert.True(t, strings.HasPrefix(pub.got[0].Ref, "sim_"))
	assert.NotEqual(t, pub.got[0].Ref, pub.got[1].Ref)
}

func TestService_Process_PublishError(t *testing.T) {
	svc := NewService(logging.Discard(), &capture{err: errors.New("broker down")}, domain.Policy{})
	assert.Error(t, svc.Process(context.Background(), orderdomain.OrderCreated{OrderID: "o1"}))
}
