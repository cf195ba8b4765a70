package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
)

type productRepo struct {
	db *DB
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	defer r.db.lock(ctx)()
	now := time.Now()
	p.ID = r.db.nextID()
	p.CreatedAt, p.UpdatedAt = now, now
	r.db.data.products[p.ID] = *p
	return nil
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	defer r.db.lock(ctx)()
	cur, ok := r.db.data.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now()
	row := *p
	row.Stock = cur.Stock
	r.db.data.products[p.ID] = row
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uint64) error {
	defer r.db.lock(ctx)()
	if _, ok := r.db.data.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.data.products, id)
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	defer r.db.lock(ctx)()
	p, ok := r.db.data.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// FindByIDForUpdate needs no row lock here: callers inside WithinTx already
// hold the store.
func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepo) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int64, error) {
	less, ok := productOrder[f.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidArgument, f.Sort)
	}
	var lo, hi *decimal.Decimal
	if f.MinPrice != "" {
		v, err := decimal.NewFromString(f.MinPrice)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: minPrice", domain.ErrInvalidArgument)
		}
		lo = &v
	}
	if f.MaxPrice != "" {
		v, err := decimal.NewFromString(f.MaxPrice)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: maxPrice", domain.ErrInvalidArgument)
		}
		hi = &v
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	defer r.db.lock(ctx)()
	var matched []domain.Product
	for _, p := range r.db.data.products {
		switch {
		case f.CategoryID != 0 && p.CategoryID != f.CategoryID:
			continue
		case search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search):
			continue
		case lo != nil && p.Price.LessThan(*lo):
			continue
		case hi != nil && p.Price.GreaterThan(*hi):
			continue
		case f.InStock && p.Stock <= 0:
			continue
		}
		matched = append(matched, p)
	}
	slices.SortFunc(matched, less)
	return page(matched, f.Offset(), f.PageSize()), int64(len(matched)), nil
}

var productOrder = map[string]func(a, b domain.Product) int{
	"": func(a, b domain.Product) int { return cmp.Compare(a.ID, b.ID) },
	"newest": func(a, b domain.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	},
	"price_asc": func(a, b domain.Product) int {
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	},
	"price_desc": func(a, b domain.Product) int {
		if c := b.Price.Cmp(a.Price); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	},
	"name": func(a, b domain.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	},
}

func (r *productRepo) DecrementStock(ctx context.Context, id uint64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}
	defer r.db.lock(ctx)()
	p, ok := r.db.data.products[id]
	if !ok {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	if p.Stock < qty {
		return fmt.Errorf("%w: %s has %d left, %d requested", domain.ErrInsufficientStock, p.Name, p.Stock, qty)
	}
	p.Stock -= qty
	r.db.data.products[id] = p
	return nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id uint64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}
	defer r.db.lock(ctx)()
	p, ok := r.db.data.products[id]
	if !ok {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	p.Stock += qty
	r.db.data.products[id] = p
	return nil
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	defer r.db.lock(ctx)()
	var n int64
	for _, p := range r.db.data.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type categoryRepo struct {
	db *DB
}

func (r *categoryRepo) nameTaken(name string, except uint64) bool {
	for _, c := range r.db.data.categories {
		if c.ID != except && c.Name == name {
			return true
		}
	}
	return false
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	defer r.db.lock(ctx)()
	if r.nameTaken(c.Name, 0) {
		return domain.ErrConflict
	}
	now := time.Now()
	c.ID = r.db.nextID()
	c.CreatedAt, c.UpdatedAt = now, now
	r.db.data.categories[c.ID] = *c
	return nil
}

func (r *categoryRepo) Update(ctx context.Context, c *domain.Category) error {
	defer r.db.lock(ctx)()
	cur, ok := r.db.data.categories[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.nameTaken(c.Name, c.ID) {
		return domain.ErrConflict
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = time.Now()
	r.db.data.categories[c.ID] = *c
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, id uint64) error {
	defer r.db.lock(ctx)()
	if _, ok := r.db.data.categories[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.data.categories, id)
	return nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id uint64) (*domain.Category, error) {
	defer r.db.lock(ctx)()
	c, ok := r.db.data.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	defer r.db.lock(ctx)()
	for _, c := range r.db.data.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	defer r.db.lock(ctx)()
	out := make([]domain.Category, 0, len(r.db.data.categories))
	for _, c := range r.db.data.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
