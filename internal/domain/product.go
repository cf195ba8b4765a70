package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Category struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Product is shared by cart lines and order items; it is referenced, never owned.
// Discount is a whole percentage in 0..100 and defaults to 0.
type Product struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Discount    int             `json:"discount" gorm:"not null;default:0"`
	CategoryID  uint64          `json:"categoryId" gorm:"not null;index"`
	ImageURL    string          `json:"imageUrl" gorm:"size:255"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than 0", ErrInvalidArgument)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidArgument)
	}
	if p.Discount < 0 || p.Discount > 100 {
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidArgument)
	}
	if p.CategoryID == 0 {
		return fmt.Errorf("%w: category is required", ErrInvalidArgument)
	}
	return nil
}

// UnitPrice is the price after discount, rounded half-up to cents.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.Discount == 0 {
		return p.Price.Round(2)
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(p.Discount))).Div(hundred)
	return p.Price.Mul(factor).Round(2)
}

func (p *Product) InStock() bool { return p.Stock > 0 }
