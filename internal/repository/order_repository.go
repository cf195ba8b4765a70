package repository

import (
	"context"

	"storefront/internal/domain"
)

type OrderFilter struct {
	UserID uint64
	Status domain.OrderStatus
	Page   int
	Limit  int
}

func (f OrderFilter) Offset() int { return (f.normalizedPage() - 1) * f.PageSize() }

func (f OrderFilter) PageSize() int { return pageSize(f.Limit) }

func (f OrderFilter) normalizedPage() int {
	if f.Page <= 0 {
		return 1
	}
	return f.Page
}

type OrderRepository interface {
	// Create persists the order together with its items.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	// FindByIDForUpdate row-locks the order until the surrounding transaction
	// ends. Every status or payment change reads the order through it.
	FindByIDForUpdate(ctx context.Context, id uint64) (*domain.Order, error)
	// FindByIDForUser scopes the lookup by owner; a foreign order is reported absent.
	FindByIDForUser(ctx context.Context, id, userID uint64) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int64, error)
	// UpdateStatus persists status, payment fields and timestamps only.
	UpdateStatus(ctx context.Context, order *domain.Order) error
	CountItemsByProduct(ctx context.Context, productID uint64) (int64, error)
}
