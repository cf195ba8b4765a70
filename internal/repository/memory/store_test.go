package memory

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *repository.Store, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: "Lamp", Price: decimal.RequireFromString("19.99"), Stock: stock, CategoryID: 1}
	require.NoError(t, s.Products.Create(context.Background(), p))
	return p
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := seedProduct(t, s, 5)

	boom := errors.New("boom")
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Products.DecrementStock(ctx, p.ID, 3))
		require.NoError(t, s.Carts.Create(ctx, &domain.CartItem{UserID: 7, ProductID: p.ID, Quantity: 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	items, err := s.Carts.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := seedProduct(t, s, 5)

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.Products.DecrementStock(ctx, p.ID, 2)
		})
	})
	require.NoError(t, err)

	got, _ := s.Products.FindByID(ctx, p.ID)
	assert.Equal(t, 3, got.Stock)
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := seedProduct(t, s, 2)

	tests := []struct {
		name    string
		id      uint64
		qty     int
		wantErr error
	}{
		{"more than available", p.ID, 3, domain.ErrInsufficientStock},
		{"unknown product", p.ID + 100, 1, domain.ErrNotFound},
		{"zero quantity", p.ID, 0, domain.ErrInvalidArgument},
		{"exact stock", p.ID, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Products.DecrementStock(ctx, tt.id, tt.qty)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	got, _ := s.Products.FindByID(ctx, p.ID)
	assert.Equal(t, 0, got.Stock)
}

func TestProductUpdate_KeepsStock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := seedProduct(t, s, 5)
	require.NoError(t, s.Products.DecrementStock(ctx, p.ID, 3))

	edit := *p
	edit.Name = "Desk Lamp"
	edit.Stock = 40
	require.NoError(t, s.Products.Update(ctx, &edit))

	got, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", got.Name)
	assert.Equal(t, 2, got.Stock)
}

func TestProductList_FiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i, price := range []string{"5.00", "15.00", "25.00", "35.00"} {
		require.NoError(t, s.Products.Create(ctx, &domain.Product{
			Name:       []string{"alpha", "beta", "gamma", "delta"}[i],
			Price:      decimal.RequireFromString(price),
			Stock:      i,
			CategoryID: 1,
		}))
	}

	got, total, err := s.Products.List(ctx, repository.ProductFilter{MinPrice: "10", InStock: true, Sort: "price_desc", Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 2)
	assert.Equal(t, "delta", got[0].Name)
	assert.Equal(t, "gamma", got[1].Name)

	_, _, err = s.Products.List(ctx, repository.ProductFilter{Sort: "random"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCartCreate_UniquePerUserAndProduct(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := seedProduct(t, s, 5)

	require.NoError(t, s.Carts.Create(ctx, &domain.CartItem{UserID: 1, ProductID: p.ID, Quantity: 1}))
	err := s.Carts.Create(ctx, &domain.CartItem{UserID: 1, ProductID: p.ID, Quantity: 2})
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, s.Carts.Create(ctx, &domain.CartItem{UserID: 2, ProductID: p.ID, Quantity: 2}))

	items, err := s.Carts.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Lamp", items[0].Product.Name)
}
