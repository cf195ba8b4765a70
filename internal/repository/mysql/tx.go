// Package mysql holds the GORM repositories. The SQL is dialect neutral and is
// also used when the service runs on Postgres.
package mysql

import (
	"context"
	"database/sql"

	"storefront/internal/repository"

	"gorm.io/gorm"
)

type txKey struct{}

type transactor struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
}

// NewTransactor returns a Transactor that begins transactions at the given
// isolation level. Stock writes rely on conditional updates, so read committed
// is sufficient.
func NewTransactor(db *gorm.DB, isolation sql.IsolationLevel) repository.Transactor {
	return &transactor{db: db, isolation: isolation}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	}, &sql.TxOptions{Isolation: t.isolation})
}

// conn returns the transaction bound to ctx, or the root handle.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func NewStore(db *gorm.DB, isolation sql.IsolationLevel) *repository.Store {
	return &repository.Store{
		Tx:         NewTransactor(db, isolation),
		Products:   NewProductRepository(db),
		Categories: NewCategoryRepository(db),
		Carts:      NewCartRepository(db),
		Orders:     NewOrderRepository(db),
		Users:      NewUserRepository(db),
	}
}
