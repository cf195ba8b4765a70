package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status.changed"
	EventOrderCancelled     = "order.cancelled"
	EventPaymentUpdated     = "order.payment.updated"
)

type OrderCreatedEvent struct {
	OrderID     uint64          `json:"orderId"`
	UserID      uint64          `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderID   uint64      `json:"orderId"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ActorID   uint64      `json:"actorId"`
	ChangedAt time.Time   `json:"changedAt"`
}

type OrderCancelledEvent struct {
	OrderID     uint64             `json:"orderId"`
	UserID      uint64             `json:"userId"`
	Restocked   []OrderItemRestock `json:"restocked"`
	CancelledAt time.Time          `json:"cancelledAt"`
}

type OrderItemRestock struct {
	ProductID uint64 `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PaymentUpdatedEvent struct {
	OrderID         uint64        `json:"orderId"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// EventKey partitions events by order so consumers see one order's events in sequence.
func (e OrderCreatedEvent) EventKey() string       { return orderKey(e.OrderID) }
func (e OrderStatusChangedEvent) EventKey() string { return orderKey(e.OrderID) }
func (e OrderCancelledEvent) EventKey() string     { return orderKey(e.OrderID) }
func (e PaymentUpdatedEvent) EventKey() string     { return orderKey(e.OrderID) }

func orderKey(id uint64) string { return "order-" + strconv.FormatUint(id, 10) }
