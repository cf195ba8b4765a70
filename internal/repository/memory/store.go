// Package memory is an in-process backend with the same semantics as the SQL
// repositories. A transaction holds the store lock for its whole duration and
// restores a snapshot when fn fails.
package memory

import (
	"context"
	"maps"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type txKey struct{}

type data struct {
	products   map[uint64]domain.Product
	categories map[uint64]domain.Category
	carts      map[uint64]domain.CartItem
	orders     map[uint64]domain.Order
	users      map[uint64]domain.User
	seq        uint64
}

// Values are stored by value and replaced on write, so a shallow clone of
// each map is a full snapshot.
func (d *data) clone() *data {
	return &data{
		products:   maps.Clone(d.products),
		categories: maps.Clone(d.categories),
		carts:      maps.Clone(d.carts),
		orders:     maps.Clone(d.orders),
		users:      maps.Clone(d.users),
		seq:        d.seq,
	}
}

type DB struct {
	mu   sync.Mutex
	data *data
}

func NewDB() *DB {
	return &DB{data: &data{
		products:   map[uint64]domain.Product{},
		categories: map[uint64]domain.Category{},
		carts:      map[uint64]domain.CartItem{},
		orders:     map[uint64]domain.Order{},
		users:      map[uint64]domain.User{},
	}}
}

func (db *DB) nextID() uint64 {
	db.data.seq++
	return db.data.seq
}

// lock acquires the store unless ctx already runs inside one of its transactions.
func (db *DB) lock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txKey{}).(*DB); ok && owner == db {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*DB); ok && owner == db {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.data = snapshot
		return err
	}
	return nil
}

// NewStore wires every repository to a fresh in-memory database.
func NewStore() *repository.Store {
	return NewDB().Store()
}

func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Tx:         db,
		Products:   &productRepo{db: db},
		Categories: &categoryRepo{db: db},
		Carts:      &cartRepo{db: db},
		Orders:     &orderRepo{db: db},
		Users:      &userRepo{db: db},
	}
}
