package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/payment/domain"
)

// Service plays the external payment collaborator in development: every
// placed order gets an asynchronous verdict.
type Service struct {
	log    *slog.Logger
	pub    ResultPublisher
	policy domain.Policy
}

func NewService(log *slog.Logger, pub ResultPublisher, policy domain.Policy) *Service {
	return &Service{log: log, pub: pub, policy: policy}
}

func (s *Service) Process(ctx context.Context, ev orderdomain.OrderCreated) error {
	res := s.policy.Decide(ev, "sim_"+uuid.NewString())
	if err := s.pub.Publish(ctx, res); err != nil {
		return err
	}
	s.log.Info("payment result published", "order_id", ev.OrderID, "success", res.Success, "amount_cents", ev.TotalCents)
	return nil
}
