package services

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/mocks"
	"storefront/internal/repository"
	"storefront/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	TestUserID  = uint64(1001)
	OtherUserID = uint64(1002)
)

var testAddress = domain.ShippingAddress{
	FullName:   "Ada Lovelace",
	Street:     "12 St James's Square",
	City:       "London",
	PostalCode: "SW1Y 4JH",
	Country:    "GB",
}

type testEnv struct {
	store     *repository.Store
	carts     *CartService
	orders    *OrderService
	publisher *mocks.MockPublisher
	payments  *mocks.MockPaymentGateway
	metrics   *metrics.Metrics
}

// newTestEnv wires the services over a fresh in-memory store. The publisher
// accepts every event.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.NewStore())
}

func newTestEnvWithStore(t *testing.T, store *repository.Store) *testEnv {
	t.Helper()
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	pay := new(mocks.MockPaymentGateway)
	m := metrics.New()

	carts := NewCartService(store)
	return &testEnv{
		store:     store,
		carts:     carts,
		orders:    NewOrderService(store, carts, pay, pub, nil, m),
		publisher: pub,
		payments:  pay,
		metrics:   m,
	}
}

func seedCategory(t *testing.T, store *repository.Store, name string) *domain.Category {
	t.Helper()
	c := &domain.Category{Name: name}
	require.NoError(t, store.Categories.Create(context.Background(), c))
	return c
}

func seedProduct(t *testing.T, store *repository.Store, name, price string, stock, discount int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		Discount:   discount,
		CategoryID: 1,
	}
	require.NoError(t, store.Products.Create(context.Background(), p))
	return p
}

func productStock(t *testing.T, store *repository.Store, id uint64) int {
	t.Helper()
	p, err := store.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func stockLevel(n int) *int { return &n }

func adminUser() *domain.User    { return &domain.User{ID: 1, Role: domain.RoleAdmin} }
func customerUser() *domain.User { return &domain.User{ID: TestUserID, Role: domain.RoleUser} }

// barrierTx holds every caller at the transaction boundary until all
// participants have arrived, so their transactions start together.
type barrierTx struct {
	inner repository.Transactor
	wg    *sync.WaitGroup
}

func (b *barrierTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	b.wg.Done()
	b.wg.Wait()
	return b.inner.WithinTx(ctx, fn)
}

// failingCarts fails DeleteByUser, the last write of a checkout.
type failingCarts struct {
	repository.CartRepository
	err error
}

func (f *failingCarts) DeleteByUser(ctx context.Context, userID uint64) error {
	return f.err
}
