package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ProductInput carries an admin product form. Stock is the absolute level to
// set; nil leaves it as is on update and means zero on create.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       *int
	Discount    int
	CategoryID  uint64
	ImageURL    string
}

type CategoryInput struct {
	Name        string
	Description string
}

type CatalogService struct {
	store   *repository.Store
	cache   infra.ProductCache
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewCatalogService builds the catalog service. A nil cache disables caching.
func NewCatalogService(store *repository.Store, cache infra.ProductCache, m *metrics.Metrics) *CatalogService {
	return &CatalogService{store: store, cache: cache, metrics: m}
}

func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int64, error) {
	return s.store.Products.List(ctx, filter)
}

// GetProduct reads through the cache. Concurrent misses for the same id share
// one store lookup.
func (s *CatalogService) GetProduct(ctx context.Context, id uint64) (*domain.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			s.metrics.ProductCacheLookups.WithLabelValues("error").Inc()
			logger.Warn(ctx, "product cache read failed", "product_id", id, "error", err)
		case cached != nil:
			s.metrics.ProductCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			s.metrics.ProductCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	v, err, _ := s.group.Do(strconv.FormatUint(id, 10), func() (any, error) {
		p, err := s.store.Products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
		}
		s.cacheProduct(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.Product)
	return &p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor *domain.User, in ProductInput) (*domain.Product, error) {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	p := in.apply(&domain.Product{})
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	if err := s.store.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.Info(ctx, "product created", "product_id", p.ID, "actor_id", actor.ID)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor *domain.User, id uint64, in ProductInput) (*domain.Product, error) {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	var p *domain.Product
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.store.Products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
		}
		before := current.Stock
		p = in.apply(current)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.requireCategory(ctx, p.CategoryID); err != nil {
			return err
		}
		delta := p.Stock - before
		if err := s.store.Products.Update(ctx, p); err != nil {
			return err
		}
		return s.adjustStock(ctx, id, delta)
	})
	if err != nil {
		return nil, abortErr(err)
	}
	s.invalidate(ctx, id)
	logger.Info(ctx, "product updated", "product_id", id, "actor_id", actor.ID)
	return p, nil
}

// adjustStock moves stock by delta relative to the locked row.
func (s *CatalogService) adjustStock(ctx context.Context, id uint64, delta int) error {
	switch {
	case delta > 0:
		return s.store.Products.IncrementStock(ctx, id, delta)
	case delta < 0:
		return s.store.Products.DecrementStock(ctx, id, -delta)
	}
	return nil
}

// DeleteProduct refuses products that appear on any order. Cart lines holding
// the product go with it.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor *domain.User, id uint64) error {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.store.Products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
		}
		n, err := s.store.Orders.CountItemsByProduct(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: product %d is referenced by %d order items", domain.ErrConflict, id, n)
		}
		if err := s.store.Carts.DeleteByProduct(ctx, id); err != nil {
			return err
		}
		return s.store.Products.Delete(ctx, id)
	})
	if err != nil {
		return abortErr(err)
	}
	s.invalidate(ctx, id)
	logger.Info(ctx, "product deleted", "product_id", id, "actor_id", actor.ID)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.Categories.List(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor *domain.User, in CategoryInput) (*domain.Category, error) {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	name, err := categoryName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.requireUniqueName(ctx, name, 0); err != nil {
		return nil, err
	}
	c := &domain.Category{Name: name, Description: in.Description}
	if err := s.store.Categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, actor *domain.User, id uint64, in CategoryInput) (*domain.Category, error) {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	name, err := categoryName(in.Name)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
	}
	if err := s.requireUniqueName(ctx, name, id); err != nil {
		return nil, err
	}
	c.Name = name
	c.Description = in.Description
	if err := s.store.Categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory is rejected while any product still belongs to the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor *domain.User, id uint64) error {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.store.Products.CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: category %d has %d products", domain.ErrConflict, id, n)
		}
		return s.store.Categories.Delete(ctx, id)
	})
	return abortErr(err)
}

// WarmupCache loads the newest products into the cache.
func (s *CatalogService) WarmupCache(ctx context.Context, limit int) error {
	if s.cache == nil {
		return nil
	}
	defer logger.LogDuration(ctx, "product cache warmup", "limit", limit)()

	products, _, err := s.store.Products.List(ctx, repository.ProductFilter{Sort: "newest", Limit: limit})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		if err := s.cache.Set(ctx, &products[i]); err != nil {
			return fmt.Errorf("cache product %d: %w", products[i].ID, err)
		}
	}
	logger.Info(ctx, "product cache warmed", "count", len(products))
	return nil
}

func (s *CatalogService) requireCategory(ctx context.Context, id uint64) error {
	c, err := s.store.Categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
	}
	return nil
}

func (s *CatalogService) requireUniqueName(ctx context.Context, name string, selfID uint64) error {
	existing, err := s.store.Categories.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: category %q already exists", domain.ErrConflict, name)
	}
	return nil
}

func (s *CatalogService) cacheProduct(ctx context.Context, p *domain.Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, p); err != nil {
		logger.Warn(ctx, "product cache write failed", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) invalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		logger.Warn(ctx, "product cache invalidation failed", "product_id", id, "error", err)
	}
}

func (in ProductInput) apply(p *domain.Product) *domain.Product {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	p.Discount = in.Discount
	p.CategoryID = in.CategoryID
	p.ImageURL = in.ImageURL
	return p
}

func categoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: category name is required", domain.ErrInvalidArgument)
	}
	return name, nil
}
