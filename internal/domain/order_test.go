package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
	StatusDelivered, StatusCancelled, StatusReturned,
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{StatusPending, StatusConfirmed}:    true,
		{StatusPending, StatusCancelled}:    true,
		{StatusConfirmed, StatusProcessing}: true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusShipped, StatusDelivered}:    true,
		{StatusShipped, StatusReturned}:     true,
		{StatusDelivered, StatusReturned}:   true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, allowed[[2]OrderStatus{from, to}], from.CanTransitionTo(to))
			})
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range allStatuses {
		expected := s == StatusCancelled || s == StatusReturned
		assert.Equal(t, expected, s.Terminal(), s)
	}
}

func TestOrder_TransitionTo(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	t.Run("stamps shipped", func(t *testing.T) {
		o := &Order{Status: StatusProcessing}
		require.NoError(t, o.TransitionTo(StatusShipped, now))
		assert.Equal(t, StatusShipped, o.Status)
		require.NotNil(t, o.ShippedAt)
		assert.True(t, o.ShippedAt.Equal(now))
		assert.True(t, o.UpdatedAt.Equal(now))
	})

	t.Run("stamps cancelled", func(t *testing.T) {
		o := &Order{Status: StatusPending}
		require.NoError(t, o.TransitionTo(StatusCancelled, now))
		require.NotNil(t, o.CancelledAt)
	})

	t.Run("rejects and names both statuses", func(t *testing.T) {
		o := &Order{Status: StatusPending}
		err := o.TransitionTo(StatusDelivered, now)

		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, StatusPending, te.From)
		assert.Equal(t, StatusDelivered, te.To)
		assert.Contains(t, err.Error(), "PENDING -> DELIVERED")
		assert.Equal(t, StatusPending, o.Status)
		assert.Nil(t, o.DeliveredAt)
	})
}

func TestOrder_Cancellable(t *testing.T) {
	for _, s := range allStatuses {
		o := &Order{Status: s}
		assert.Equal(t, s == StatusPending || s == StatusConfirmed, o.Cancellable(), s)
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseOrderStatus("LOST")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in       string
		expected PaymentMethod
		wantErr  bool
	}{
		{in: "", expected: PaymentCard},
		{in: "card", expected: PaymentCard},
		{in: "PayPal", expected: PaymentPayPal},
		{in: "cash_on_delivery", expected: PaymentCashOnDelivery},
		{in: "crypto", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParsePaymentMethod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}
}

func TestShippingAddress_Validate(t *testing.T) {
	full := ShippingAddress{FullName: "A", Street: "B", City: "C", PostalCode: "D", Country: "E"}
	assert.NoError(t, full.Validate())

	err := ShippingAddress{FullName: "A", Street: "B"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "city, country, postalCode")
}

func TestNewOrderFromCart(t *testing.T) {
	items := []CartItem{
		{ProductID: 1, Quantity: 3, Product: &Product{ID: 1, Name: "Lamp", Price: decimal.RequireFromString("19.99"), Discount: 15}},
		{ProductID: 2, Quantity: 2, Product: &Product{ID: 2, Name: "Bulb", Price: decimal.RequireFromString("2.50")}},
	}
	addr := ShippingAddress{FullName: "A", Street: "B", City: "C", PostalCode: "D", Country: "E"}

	o := NewOrderFromCart(7, items, addr, PaymentPayPal)

	assert.Equal(t, uint64(7), o.UserID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "16.99", o.Items[0].Price.StringFixed(2))
	assert.Equal(t, "Lamp", o.Items[0].ProductName)
	assert.Equal(t, "2.50", o.Items[1].Price.StringFixed(2))
	// 3 * 16.99 + 2 * 2.50
	assert.Equal(t, "55.97", o.TotalAmount.StringFixed(2))
}
