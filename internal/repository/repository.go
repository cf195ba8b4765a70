// Package repository declares the storage ports used by the services.
// Finder methods return (nil, nil) when a row does not exist.
package repository

import (
	"context"

	"storefront/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Transactor runs fn as one atomic unit. Repositories called with the ctx
// handed to fn take part in the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductFilter struct {
	CategoryID uint64
	Search     string
	MinPrice   string
	MaxPrice   string
	InStock    bool
	Sort       string
	Page       int
	Limit      int
}

func (f ProductFilter) Offset() int {
	page := f.Page
	if page <= 0 {
		page = 1
	}
	return (page - 1) * f.PageSize()
}

func (f ProductFilter) PageSize() int { return pageSize(f.Limit) }

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	// Update writes every editable column except stock, which only moves
	// through DecrementStock and IncrementStock.
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uint64) error
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	// FindByIDForUpdate row-locks the product until the surrounding
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error)
	// DecrementStock subtracts qty only if at least qty is available, in a
	// single conditional write. It returns domain.ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, id uint64, qty int) error
	IncrementStock(ctx context.Context, id uint64, qty int) error
	CountByCategory(ctx context.Context, categoryID uint64) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id uint64) error
	FindByID(ctx context.Context, id uint64) (*domain.Category, error)
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type CartRepository interface {
	// ListByUser returns the user's lines with Product loaded, oldest first.
	ListByUser(ctx context.Context, userID uint64) ([]domain.CartItem, error)
	// ListByUserForUpdate is ListByUser holding row locks on the lines until
	// the surrounding transaction ends.
	ListByUserForUpdate(ctx context.Context, userID uint64) ([]domain.CartItem, error)
	FindByID(ctx context.Context, userID, itemID uint64) (*domain.CartItem, error)
	FindByProduct(ctx context.Context, userID, productID uint64) (*domain.CartItem, error)
	Create(ctx context.Context, item *domain.CartItem) error
	UpdateQuantity(ctx context.Context, itemID uint64, qty int) error
	Delete(ctx context.Context, itemID uint64) error
	DeleteByUser(ctx context.Context, userID uint64) error
	DeleteByProduct(ctx context.Context, productID uint64) error
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uint64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Store bundles every repository of one backend.
type Store struct {
	Tx         Transactor
	Products   ProductRepository
	Categories CategoryRepository
	Carts      CartRepository
	Orders     OrderRepository
	Users      UserRepository
}
