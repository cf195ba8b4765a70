package mysql

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	if err := conn(ctx, r.db).Omit("Items.Product").Create(order).Error; err != nil {
		return err
	}
	if order.ID == 0 {
		return errors.New("failed to assign order ID")
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.Order, error) {
	return r.first(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *orderRepo) FindByIDForUser(ctx context.Context, id, userID uint64) (*domain.Order, error) {
	return r.first(conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID))
}

func (r *orderRepo) first(q *gorm.DB) (*domain.Order, error) {
	var o domain.Order
	if err := q.Preload("Items").Preload("Items.Product").First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	q := conn(ctx, r.db).Model(&domain.Order{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Order
	err := q.Preload("Items").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Offset(filter.Offset()).
		Limit(filter.PageSize()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, order *domain.Order) error {
	res := conn(ctx, r.db).Model(&domain.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":            order.Status,
			"payment_status":    order.PaymentStatus,
			"payment_intent_id": order.PaymentIntentID,
			"shipped_at":        order.ShippedAt,
			"delivered_at":      order.DeliveredAt,
			"cancelled_at":      order.CancelledAt,
			"updated_at":        order.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepo) CountItemsByProduct(ctx context.Context, productID uint64) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.OrderItem{}).Where("product_id = ?", productID).Count(&n).Error
	return n, err
}
