package mysql

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	err := conn(ctx, r.db).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *userRepo) Update(ctx context.Context, u *domain.User) error {
	return conn(ctx, r.db).Model(&domain.User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"name":    u.Name,
		"address": u.Address,
		"role":    u.Role,
	}).Error
}

func (r *userRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(conn(ctx, r.db).Where("email = ?", email))
}

func (r *userRepo) first(q *gorm.DB) (*domain.User, error) {
	var u domain.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
