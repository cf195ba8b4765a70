package mysql

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) ListByUser(ctx context.Context, userID uint64) ([]domain.CartItem, error) {
	return r.list(conn(ctx, r.db), userID)
}

func (r *cartRepo) ListByUserForUpdate(ctx context.Context, userID uint64) ([]domain.CartItem, error) {
	return r.list(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *cartRepo) list(q *gorm.DB, userID uint64) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := q.Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *cartRepo) FindByID(ctx context.Context, userID, itemID uint64) (*domain.CartItem, error) {
	return r.first(conn(ctx, r.db).Where("id = ? AND user_id = ?", itemID, userID))
}

func (r *cartRepo) FindByProduct(ctx context.Context, userID, productID uint64) (*domain.CartItem, error) {
	return r.first(conn(ctx, r.db).Where("user_id = ? AND product_id = ?", userID, productID))
}

func (r *cartRepo) first(q *gorm.DB) (*domain.CartItem, error) {
	var item domain.CartItem
	if err := q.Preload("Product").First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *cartRepo) Create(ctx context.Context, item *domain.CartItem) error {
	err := conn(ctx, r.db).Omit("Product").Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, itemID uint64, qty int) error {
	res := conn(ctx, r.db).Model(&domain.CartItem{}).Where("id = ?", itemID).Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, itemID uint64) error {
	return conn(ctx, r.db).Delete(&domain.CartItem{}, itemID).Error
}

func (r *cartRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	return conn(ctx, r.db).Where("user_id = ?", userID).Delete(&domain.CartItem{}).Error
}

func (r *cartRepo) DeleteByProduct(ctx context.Context, productID uint64) error {
	return conn(ctx, r.db).Where("product_id = ?", productID).Delete(&domain.CartItem{}).Error
}
