package application

import (
	"context"

	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
)

type ResultPublisher interface {
	Publish(ctx context.Context, res orderdomain.PaymentResult) error
}
