package domain

import (
	orderdomain "github.com/dmehra2102/storefront/internal/order/domain"
)

// Policy is the simulated gateway's decision rule. Orders above
// DeclineAboveCents are declined; zero means approve everything.
type Policy struct {
	Provider          string
	Method            string
	DeclineAboveCents int64
}

func (p Policy) Decide(ev orderdomain.OrderCreated, ref string) orderdomain.PaymentResult {
	return orderdomain.PaymentResult{
		OrderID:  ev.OrderID,
		Success:  p.DeclineAboveCents == 0 || ev.TotalCents <= p.DeclineAboveCents,
		Provider: p.Provider,
		Ref:      ref,
		Method:   p.Method,
	}
}
