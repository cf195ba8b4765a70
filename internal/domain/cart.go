package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is unique per (UserID, ProductID).
type CartItem struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `json:"userId" gorm:"not null;uniqueIndex:idx_cart_user_product"`
	ProductID uint64    `json:"productId" gorm:"not null;uniqueIndex:idx_cart_user_product"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Product   *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

type CartSummary struct {
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// Summarize derives the cart totals. Line amounts are accumulated unrounded and
// only the aggregates are rounded, so per-line rounding error does not compound.
func Summarize(items []CartItem) CartSummary {
	subtotal := decimal.Zero
	discount := decimal.Zero
	totalItems := 0

	for _, item := range items {
		totalItems += item.Quantity
		if item.Product == nil {
			continue
		}
		line := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		if item.Product.Discount > 0 {
			pct := decimal.NewFromInt(int64(item.Product.Discount))
			discount = discount.Add(line.Mul(pct).Div(hundred))
		}
	}

	subtotal = subtotal.Round(2)
	discount = discount.Round(2)

	if items == nil {
		items = []CartItem{}
	}
	return CartSummary{
		Items:      items,
		TotalItems: totalItems,
		Subtotal:   subtotal,
		Discount:   discount,
		Total:      subtotal.Sub(discount).Round(2),
	}
}

type StockAdjustment struct {
	ProductID   uint64 `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// SyncResult reports what a stock reconciliation changed in a cart.
type SyncResult struct {
	Removed  []string          `json:"removed"`
	Adjusted []StockAdjustment `json:"adjusted"`
}

func (r SyncResult) Changed() bool { return len(r.Removed) > 0 || len(r.Adjusted) > 0 }
