package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusReturned   OrderStatus = "RETURNED"
)

// CANCELLED and RETURNED are terminal and have no entry.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
}

var cancellableStatuses = []OrderStatus{StatusPending, StatusConfirmed}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidArgument, s)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return slices.Contains(orderTransitions[s], target)
}

func (s OrderStatus) Terminal() bool { return len(orderTransitions[s]) == 0 }

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

func ParsePaymentOutcome(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if status != PaymentPaid && status != PaymentFailed {
		return "", fmt.Errorf("%w: payment outcome must be PAID or FAILED", ErrInvalidArgument)
	}
	return status, nil
}

type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "CARD"
	PaymentPayPal         PaymentMethod = "PAYPAL"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case PaymentCard, PaymentPayPal, PaymentCashOnDelivery:
		return m, nil
	case "":
		return PaymentCard, nil
	}
	return "", fmt.Errorf("%w: unsupported payment method %q", ErrInvalidArgument, s)
}

// ShippingAddress is stored as a JSON snapshot on the order row.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a ShippingAddress) Validate() error {
	missing := []string{}
	for name, v := range map[string]string{
		"fullName":   a.FullName,
		"street":     a.Street,
		"city":       a.City,
		"postalCode": a.PostalCode,
		"country":    a.Country,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: shipping address missing %s", ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}

// Order is an immutable snapshot except for its status and payment fields.
// TotalAmount is computed once at creation and never recomputed.
type Order struct {
	ID              uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID          uint64          `json:"userId" gorm:"not null;index"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index;default:'PENDING'"`
	TotalAmount     decimal.Decimal `json:"totalAmount" gorm:"type:decimal(12,2);not null"`
	ShippingAddress ShippingAddress `json:"shippingAddress" gorm:"type:text;serializer:json"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" gorm:"type:varchar(30);not null"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty" gorm:"size:255;index"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// OrderItem captures the post-discount unit price at order time.
type OrderItem struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     uint64          `json:"orderId" gorm:"not null;index"`
	ProductID   uint64          `json:"productId" gorm:"not null;index"`
	ProductName string          `json:"productName" gorm:"size:255;not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Product     *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrderFromCart prices every line at the product's current discounted price.
// Items must have their Product loaded.
func NewOrderFromCart(userID uint64, items []CartItem, addr ShippingAddress, method PaymentMethod) *Order {
	order := &Order{
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: addr,
		PaymentMethod:   method,
		PaymentStatus:   PaymentPending,
		Items:           make([]OrderItem, 0, len(items)),
	}
	total := decimal.Zero
	for _, ci := range items {
		item := OrderItem{
			ProductID:   ci.ProductID,
			ProductName: ci.Product.Name,
			Quantity:    ci.Quantity,
			Price:       ci.Product.UnitPrice(),
		}
		total = total.Add(item.LineTotal())
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = total.Round(2)
	return order
}

// TransitionTo applies a status change from the transition table and stamps it.
func (o *Order) TransitionTo(target OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return &TransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.UpdatedAt = now
	switch target {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
	}
	return nil
}

func (o *Order) Cancellable() bool {
	return slices.Contains(cancellableStatuses, o.Status)
}
