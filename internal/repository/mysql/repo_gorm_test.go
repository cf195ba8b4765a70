package mysql

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"storefront/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newMockDB opens GORM over sqlmock with the production error translation.
func newMockDB(t *testing.T, matchers ...sqlmock.QueryMatcher) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	matcher := sqlmock.QueryMatcherRegexp
	if len(matchers) > 0 {
		matcher = matchers[0]
	}
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

const (
	decrementSQL  = "UPDATE `products` SET `stock`=stock - ? WHERE id = ? AND stock >= ?"
	selectProduct = "SELECT * FROM `products` WHERE `products`.`id` = ?"
)

func TestProductRepo_DecrementStock(t *testing.T) {
	tests := []struct {
		name        string
		qty         int
		setup       func(mock sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name: "enough stock",
			qty:  3,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexpOf(decrementSQL)).
					WithArgs(3, uint64(7), 3).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "short on stock",
			qty:  3,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexpOf(decrementSQL)).
					WithArgs(3, uint64(7), 3).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexpOf(selectProduct)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "stock"}).AddRow(7, "Lamp", 1))
			},
			expectedErr: domain.ErrInsufficientStock,
		},
		{
			name: "missing product",
			qty:  3,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexpOf(decrementSQL)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexpOf(selectProduct)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "stock"}))
			},
			expectedErr: domain.ErrNotFound,
		},
		{
			name:        "zero quantity",
			qty:         0,
			setup:       func(mock sqlmock.Sqlmock) {},
			expectedErr: domain.ErrInvalidArgument,
		},
		{
			name: "driver failure",
			qty:  1,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexpOf(decrementSQL)).WillReturnError(errors.New("connection reset"))
			},
			expectedErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setup(mock)

			err := NewProductRepository(db).DecrementStock(context.Background(), 7, tt.qty)

			switch {
			case tt.expectedErr == nil:
				assert.NoError(t, err)
			case domain.IsBusinessError(tt.expectedErr):
				assert.ErrorIs(t, err, tt.expectedErr)
			default:
				assert.EqualError(t, err, tt.expectedErr.Error())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductRepo_IncrementStock_MissingProduct(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexpOf("UPDATE `products` SET `stock`=stock + ? WHERE id = ?")).
		WithArgs(2, uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewProductRepository(db).IncrementStock(context.Background(), 9, 2)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_UpdateLeavesStockColumn(t *testing.T) {
	noStock := sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		if strings.Contains(actual, "stock") {
			return fmt.Errorf("stock written by %q", actual)
		}
		return sqlmock.QueryMatcherRegexp.Match(expected, actual)
	})
	db, mock := newMockDB(t, noStock)
	mock.ExpectExec("UPDATE `products` SET .* WHERE id = \\?").WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewProductRepository(db).Update(context.Background(), &domain.Product{
		ID:    4,
		Name:  "Lamp",
		Price: decimal.RequireFromString("12.50"),
		Stock: 99,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowLockingReads(t *testing.T) {
	tests := []struct {
		name  string
		query string
		run   func(ctx context.Context, db *gorm.DB) error
	}{
		{
			name:  "order",
			query: "SELECT * FROM `orders` WHERE id = ? ORDER BY `orders`.`id` LIMIT ? FOR UPDATE",
			run: func(ctx context.Context, db *gorm.DB) error {
				o, err := NewOrderRepository(db).FindByIDForUpdate(ctx, 5)
				if o != nil {
					return errors.New("expected no order")
				}
				return err
			},
		},
		{
			name:  "product",
			query: "SELECT * FROM `products` WHERE `products`.`id` = ? ORDER BY `products`.`id` LIMIT ? FOR UPDATE",
			run: func(ctx context.Context, db *gorm.DB) error {
				p, err := NewProductRepository(db).FindByIDForUpdate(ctx, 5)
				if p != nil {
					return errors.New("expected no product")
				}
				return err
			},
		},
		{
			name:  "cart",
			query: "SELECT * FROM `cart_items` WHERE user_id = ? ORDER BY created_at ASC, id ASC FOR UPDATE",
			run: func(ctx context.Context, db *gorm.DB) error {
				items, err := NewCartRepository(db).ListByUserForUpdate(ctx, 5)
				if len(items) != 0 {
					return errors.New("expected an empty cart")
				}
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery(regexpOf(tt.query)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

			require.NoError(t, tt.run(context.Background(), db))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCartRepo_Create_DuplicateLine(t *testing.T) {
	tests := []struct {
		name        string
		driverErr   error
		expectedErr error
	}{
		{name: "unique index", driverErr: &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, expectedErr: domain.ErrConflict},
		{name: "other driver error", driverErr: &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec("INSERT INTO `cart_items`").WillReturnError(tt.driverErr)

			err := NewCartRepository(db).Create(context.Background(), &domain.CartItem{UserID: 1, ProductID: 2, Quantity: 1})

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrConflict)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// regexpOf matches sql literally, tolerating whitespace differences.
func regexpOf(sql string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(sql), " ", `\s+`)
}
