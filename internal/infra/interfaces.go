package infra

import (
	"context"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// PaymentGateway creates a payment intent at the external provider and returns
// its reference.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, orderID uint64, amount decimal.Decimal) (string, error)
}

// Publisher delivers a domain event under a routing key such as "order.created".
type Publisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

// ProductCache holds catalog reads. A miss is (nil, nil).
type ProductCache interface {
	Get(ctx context.Context, id uint64) (*domain.Product, error)
	Set(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, ids ...uint64) error
}
