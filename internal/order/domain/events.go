package domain

import "time"

const (
	AggregateType = "order"

	EventOrderCreated   = "OrderCreated"
	EventOrderCancelled = "OrderCancelled"
	EventOrderPaid      = "OrderPaid"
)

type OrderCreated struct {
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	TotalCents int64  `json:"totalCents"`
	Items      []Line `json:"items"`
}

type OrderCancelled struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	CancelledAt time.Time `json:"cancelledAt"`
	ByAdmin     bool      `json:"byAdmin"`
}

type OrderPaid struct {
	OrderID    string    `json:"orderId"`
	TotalCents int64     `json:"totalCents"`
	Provider   string    `json:"provider"`
	Ref        string    `json:"ref"`
	PaidAt     time.Time `json:"paidAt"`
}

// PaymentResult is the asynchronous callback from the payment collaborator.
type PaymentResult struct {
	OrderID  string `json:"orderId"`
	Success  bool   `json:"success"`
	Provider string `json:"provider"`
	Ref      string `json:"ref"`
	Method   string `json:"method"`
}
