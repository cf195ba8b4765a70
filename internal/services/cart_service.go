package services

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository"
)

type CartService struct {
	store *repository.Store
}

func NewCartService(store *repository.Store) *CartService {
	return &CartService{store: store}
}

// AddItem upserts a line. The resulting quantity may never exceed the
// product's current stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint64, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", domain.ErrInvalidArgument)
	}

	var item *domain.CartItem
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		product, err := s.store.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
		}

		existing, err := s.store.Carts.FindByProduct(ctx, userID, productID)
		if err != nil {
			return err
		}
		want := qty
		if existing != nil {
			want += existing.Quantity
		}
		if want > product.Stock {
			return fmt.Errorf("%w: only %d of %s available", domain.ErrInsufficientStock, product.Stock, product.Name)
		}

		if existing != nil {
			if err := s.store.Carts.UpdateQuantity(ctx, existing.ID, want); err != nil {
				return err
			}
			existing.Quantity = want
			item = existing
			return nil
		}

		item = &domain.CartItem{UserID: userID, ProductID: productID, Quantity: want}
		if err := s.store.Carts.Create(ctx, item); err != nil {
			return err
		}
		item.Product = product
		return nil
	})
	if err != nil {
		return nil, abortErr(err)
	}
	return item, nil
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uint64, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", domain.ErrInvalidArgument)
	}

	var item *domain.CartItem
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		found, err := s.store.Carts.FindByID(ctx, userID, itemID)
		if err != nil {
			return err
		}
		if found == nil || found.Product == nil {
			return fmt.Errorf("%w: cart item %d", domain.ErrNotFound, itemID)
		}
		if qty > found.Product.Stock {
			return fmt.Errorf("%w: only %d of %s available", domain.ErrInsufficientStock, found.Product.Stock, found.Product.Name)
		}
		if err := s.store.Carts.UpdateQuantity(ctx, itemID, qty); err != nil {
			return err
		}
		found.Quantity = qty
		item = found
		return nil
	})
	if err != nil {
		return nil, abortErr(err)
	}
	return item, nil
}

// RemoveItem reports NotFound for a line the user does not own.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint64) error {
	item, err := s.store.Carts.FindByID(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: cart item %d", domain.ErrNotFound, itemID)
	}
	return s.store.Carts.Delete(ctx, itemID)
}

// Clear succeeds on an empty cart.
func (s *CartService) Clear(ctx context.Context, userID uint64) error {
	return s.store.Carts.DeleteByUser(ctx, userID)
}

func (s *CartService) GetSummary(ctx context.Context, userID uint64) (domain.CartSummary, error) {
	items, err := s.store.Carts.ListByUser(ctx, userID)
	if err != nil {
		return domain.CartSummary{}, err
	}
	return domain.Summarize(items), nil
}

// SyncWithStock drops lines whose product is sold out or gone and clamps the
// rest to the available stock. Each line is reconciled on its own.
func (s *CartService) SyncWithStock(ctx context.Context, userID uint64) (domain.SyncResult, error) {
	result := domain.SyncResult{Removed: []string{}, Adjusted: []domain.StockAdjustment{}}

	items, err := s.store.Carts.ListByUser(ctx, userID)
	if err != nil {
		return result, err
	}

	for _, item := range items {
		switch {
		case item.Product == nil || item.Product.Stock <= 0:
			if err := s.store.Carts.Delete(ctx, item.ID); err != nil {
				return result, err
			}
			name := fmt.Sprintf("product %d", item.ProductID)
			if item.Product != nil {
				name = item.Product.Name
			}
			result.Removed = append(result.Removed, name)
		case item.Quantity > item.Product.Stock:
			if err := s.store.Carts.UpdateQuantity(ctx, item.ID, item.Product.Stock); err != nil {
				return result, err
			}
			result.Adjusted = append(result.Adjusted, domain.StockAdjustment{
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				Quantity:    item.Product.Stock,
			})
		}
	}

	if result.Changed() {
		logger.Info(ctx, "cart synced with stock", "user_id", userID,
			"removed", len(result.Removed), "adjusted", len(result.Adjusted))
	}
	return result, nil
}
