package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	return conn(ctx, r.db).Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	res := conn(ctx, r.db).Model(&domain.Product{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"discount":    p.Discount,
		"category_id": p.CategoryID,
		"image_url":   p.ImageURL,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uint64) error {
	res := conn(ctx, r.db).Delete(&domain.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := conn(ctx, r.db).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

var productSorts = map[string]string{
	"":           "id ASC",
	"newest":     "created_at DESC, id DESC",
	"price_asc":  "price ASC, id ASC",
	"price_desc": "price DESC, id ASC",
	"name":       "name ASC, id ASC",
}

func (r *productRepo) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int64, error) {
	order, ok := productSorts[f.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidArgument, f.Sort)
	}

	q := conn(ctx, r.db).Model(&domain.Product{})
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.MinPrice != "" {
		min, err := decimal.NewFromString(f.MinPrice)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: minPrice", domain.ErrInvalidArgument)
		}
		q = q.Where("price >= ?", min)
	}
	if f.MaxPrice != "" {
		max, err := decimal.NewFromString(f.MaxPrice)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: maxPrice", domain.ErrInvalidArgument)
		}
		q = q.Where("price <= ?", max)
	}
	if f.InStock {
		q = q.Where("stock > 0")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Product
	if err := q.Order(order).Offset(f.Offset()).Limit(f.PageSize()).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DecrementStock is one conditional UPDATE; zero affected rows means the
// product is missing or short on stock.
func (r *productRepo) DecrementStock(ctx context.Context, id uint64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}
	res := conn(ctx, r.db).Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		p, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
		}
		return fmt.Errorf("%w: %s has %d left, %d requested", domain.ErrInsufficientStock, p.Name, p.Stock, qty)
	}
	return nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id uint64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}
	res := conn(ctx, r.db).Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	return nil
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}
