package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type cartRepo struct {
	db *DB
}

// withProduct attaches a copy of the referenced product, as a preload would.
func (r *cartRepo) withProduct(item domain.CartItem) domain.CartItem {
	if p, ok := r.db.data.products[item.ProductID]; ok {
		item.Product = &p
	}
	return item
}

func (r *cartRepo) ListByUser(ctx context.Context, userID uint64) ([]domain.CartItem, error) {
	defer r.db.lock(ctx)()
	var out []domain.CartItem
	for _, item := range r.db.data.carts {
		if item.UserID == userID {
			out = append(out, r.withProduct(item))
		}
	}
	slices.SortFunc(out, func(a, b domain.CartItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *cartRepo) ListByUserForUpdate(ctx context.Context, userID uint64) ([]domain.CartItem, error) {
	return r.ListByUser(ctx, userID)
}

func (r *cartRepo) FindByID(ctx context.Context, userID, itemID uint64) (*domain.CartItem, error) {
	defer r.db.lock(ctx)()
	item, ok := r.db.data.carts[itemID]
	if !ok || item.UserID != userID {
		return nil, nil
	}
	item = r.withProduct(item)
	return &item, nil
}

func (r *cartRepo) FindByProduct(ctx context.Context, userID, productID uint64) (*domain.CartItem, error) {
	defer r.db.lock(ctx)()
	for _, item := range r.db.data.carts {
		if item.UserID == userID && item.ProductID == productID {
			item = r.withProduct(item)
			return &item, nil
		}
	}
	return nil, nil
}

func (r *cartRepo) Create(ctx context.Context, item *domain.CartItem) error {
	defer r.db.lock(ctx)()
	for _, existing := range r.db.data.carts {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return domain.ErrConflict
		}
	}
	now := time.Now()
	item.ID = r.db.nextID()
	item.CreatedAt, item.UpdatedAt = now, now
	stored := *item
	stored.Product = nil
	r.db.data.carts[item.ID] = stored
	return nil
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, itemID uint64, qty int) error {
	defer r.db.lock(ctx)()
	item, ok := r.db.data.carts[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	item.Quantity = qty
	item.UpdatedAt = time.Now()
	r.db.data.carts[itemID] = item
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, itemID uint64) error {
	defer r.db.lock(ctx)()
	delete(r.db.data.carts, itemID)
	return nil
}

func (r *cartRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	defer r.db.lock(ctx)()
	for id, item := range r.db.data.carts {
		if item.UserID == userID {
			delete(r.db.data.carts, id)
		}
	}
	return nil
}

func (r *cartRepo) DeleteByProduct(ctx context.Context, productID uint64) error {
	defer r.db.lock(ctx)()
	for id, item := range r.db.data.carts {
		if item.ProductID == productID {
			delete(r.db.data.carts, id)
		}
	}
	return nil
}

type orderRepo struct {
	db *DB
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	defer r.db.lock(ctx)()
	now := time.Now()
	order.ID = r.db.nextID()
	order.CreatedAt, order.UpdatedAt = now, now
	items := make([]domain.OrderItem, len(order.Items))
	for i := range order.Items {
		order.Items[i].ID = r.db.nextID()
		order.Items[i].OrderID = order.ID
		items[i] = order.Items[i]
		items[i].Product = nil
	}
	stored := *order
	stored.Items = items
	r.db.data.orders[order.ID] = stored
	return nil
}

// load returns a deep copy with products attached to the items.
func (r *orderRepo) load(o domain.Order) *domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		if p, ok := r.db.data.products[item.ProductID]; ok {
			item.Product = &p
		}
		items[i] = item
	}
	o.Items = items
	return &o
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	defer r.db.lock(ctx)()
	o, ok := r.db.data.orders[id]
	if !ok {
		return nil, nil
	}
	return r.load(o), nil
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepo) FindByIDForUser(ctx context.Context, id, userID uint64) (*domain.Order, error) {
	defer r.db.lock(ctx)()
	o, ok := r.db.data.orders[id]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	return r.load(o), nil
}

func (r *orderRepo) List(ctx context.Context, f repository.OrderFilter) ([]domain.Order, int64, error) {
	defer r.db.lock(ctx)()
	var matched []domain.Order
	for _, o := range r.db.data.orders {
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, *r.load(o))
	}
	slices.SortFunc(matched, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return page(matched, f.Offset(), f.PageSize()), int64(len(matched)), nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, order *domain.Order) error {
	defer r.db.lock(ctx)()
	o, ok := r.db.data.orders[order.ID]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = order.Status
	o.PaymentStatus = order.PaymentStatus
	o.PaymentIntentID = order.PaymentIntentID
	o.ShippedAt = order.ShippedAt
	o.DeliveredAt = order.DeliveredAt
	o.CancelledAt = order.CancelledAt
	o.UpdatedAt = order.UpdatedAt
	r.db.data.orders[order.ID] = o
	return nil
}

func (r *orderRepo) CountItemsByProduct(ctx context.Context, productID uint64) (int64, error) {
	defer r.db.lock(ctx)()
	var n int64
	for _, o := range r.db.data.orders {
		for _, item := range o.Items {
			if item.ProductID == productID {
				n++
			}
		}
	}
	return n, nil
}

type userRepo struct {
	db *DB
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	defer r.db.lock(ctx)()
	for _, existing := range r.db.data.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	now := time.Now()
	u.ID = r.db.nextID()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.data.users[u.ID] = *u
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *domain.User) error {
	defer r.db.lock(ctx)()
	cur, ok := r.db.data.users[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Name = u.Name
	cur.Address = u.Address
	cur.Role = u.Role
	cur.UpdatedAt = time.Now()
	r.db.data.users[u.ID] = cur
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	defer r.db.lock(ctx)()
	u, ok := r.db.data.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.db.lock(ctx)()
	for _, u := range r.db.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}
