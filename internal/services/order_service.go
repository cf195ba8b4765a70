package services

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

type CreateOrderInput struct {
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
}

type OrderService struct {
	store     *repository.Store
	cart      *CartService
	payments  infra.PaymentGateway
	publisher infra.Publisher
	cache     infra.ProductCache
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewOrderService wires the order lifecycle. cache may be nil.
func NewOrderService(store *repository.Store, cart *CartService, payments infra.PaymentGateway, pub infra.Publisher, cache infra.ProductCache, m *metrics.Metrics) *OrderService {
	return &OrderService{
		store:     store,
		cart:      cart,
		payments:  payments,
		publisher: pub,
		cache:     cache,
		metrics:   m,
		now:       time.Now,
	}
}

// CreateOrder turns the user's cart into an order. The cart is reconciled and
// validated first; the order rows, stock decrements and cart deletion then
// commit together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, in CreateOrderInput) (*domain.Order, error) {
	defer logger.LogDuration(ctx, "checkout", "user_id", userID)()

	order, err := s.createOrder(ctx, userID, in)
	if err != nil {
		s.metrics.CheckoutFailures.WithLabelValues(failureReason(err)).Inc()
		logger.Warn(ctx, "checkout failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.metrics.OrdersCreated.Inc()

	s.invalidateProducts(ctx, order.Items)
	s.publish(ctx, domain.EventOrderCreated, domain.OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
		CreatedAt:   order.CreatedAt,
	})

	created, err := s.store.Orders.FindByID(ctx, order.ID)
	if err != nil || created == nil {
		return order, nil
	}
	return created, nil
}

func (s *OrderService) createOrder(ctx context.Context, userID uint64, in CreateOrderInput) (*domain.Order, error) {
	method, err := domain.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.cart.SyncWithStock(ctx, userID); err != nil {
		return nil, err
	}
	items, err := s.store.Carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateCart(items); err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		items, err := s.store.Carts.ListByUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrCartEmpty
		}
		for _, item := range items {
			if item.Product == nil {
				return fmt.Errorf("%w: product %d", domain.ErrNotFound, item.ProductID)
			}
		}

		order = domain.NewOrderFromCart(userID, items, in.ShippingAddress, method)
		for _, item := range order.Items {
			if err := s.store.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.store.Orders.Create(ctx, order); err != nil {
			return err
		}
		return s.store.Carts.DeleteByUser(ctx, userID)
	})
	if err != nil {
		return nil, abortErr(err)
	}

	logger.Info(ctx, "order created", "order_id", order.ID, "user_id", userID,
		"total", order.TotalAmount.StringFixed(2), "items", len(order.Items))
	return order, nil
}

// validateCart is the pre-transaction check; the conditional stock decrement
// inside the transaction remains the authority.
func validateCart(items []domain.CartItem) error {
	if len(items) == 0 {
		return domain.ErrCartEmpty
	}
	var problems []domain.CartLineProblem
	for _, item := range items {
		available := 0
		name := fmt.Sprintf("product %d", item.ProductID)
		if item.Product != nil {
			available = item.Product.Stock
			name = item.Product.Name
		}
		if item.Quantity > available {
			problems = append(problems, domain.CartLineProblem{
				ProductID:   item.ProductID,
				ProductName: name,
				Requested:   item.Quantity,
				Available:   available,
			})
		}
	}
	if len(problems) > 0 {
		return &domain.CartValidationError{Problems: problems}
	}
	return nil
}

// UpdateStatus applies an admin status change. Cancelling a PENDING or
// CONFIRMED order is a CancelOrder and restores stock; any other transition,
// PROCESSING to CANCELLED included, leaves stock alone.
func (s *OrderService) UpdateStatus(ctx context.Context, actor *domain.User, orderID uint64, status string) (*domain.Order, error) {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	target, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		order     *domain.Order
		from      domain.OrderStatus
		restocked bool
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err = s.store.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		from = order.Status
		restocked = target == domain.StatusCancelled && order.Cancellable()
		if restocked {
			return s.cancelLocked(ctx, order)
		}
		if err := order.TransitionTo(target, s.now()); err != nil {
			return err
		}
		return s.store.Orders.UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, abortErr(err)
	}

	s.afterTransition(ctx, order, from, actor.ID, restocked)
	return order, nil
}

// CancelOrder cancels a PENDING or CONFIRMED order and restores its stock.
// A non-zero requestingUserID restricts the call to that user's own orders.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, requestingUserID uint64) (*domain.Order, error) {
	var (
		order *domain.Order
		from  domain.OrderStatus
	)
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.store.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		if requestingUserID != 0 && order.UserID != requestingUserID {
			return fmt.Errorf("%w: order %d belongs to another user", domain.ErrForbidden, orderID)
		}
		if !order.Cancellable() {
			return &domain.TransitionError{From: order.Status, To: domain.StatusCancelled}
		}
		from = order.Status
		return s.cancelLocked(ctx, order)
	})
	if err != nil {
		return nil, abortErr(err)
	}

	s.afterTransition(ctx, order, from, requestingUserID, true)
	return order, nil
}

// cancelLocked moves an order read with FindByIDForUpdate to CANCELLED and
// puts its quantities back on the shelf.
func (s *OrderService) cancelLocked(ctx context.Context, order *domain.Order) error {
	if err := order.TransitionTo(domain.StatusCancelled, s.now()); err != nil {
		return err
	}
	if err := s.restock(ctx, order); err != nil {
		return err
	}
	return s.store.Orders.UpdateStatus(ctx, order)
}

func (s *OrderService) restock(ctx context.Context, order *domain.Order) error {
	for _, item := range order.Items {
		if err := s.store.Products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) afterTransition(ctx context.Context, order *domain.Order, from domain.OrderStatus, actorID uint64, restocked bool) {
	s.metrics.StatusTransitions.WithLabelValues(string(from), string(order.Status)).Inc()
	logger.Info(ctx, "order status changed", "order_id", order.ID, "from", from, "to", order.Status, "actor_id", actorID)

	s.publish(ctx, domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:   order.ID,
		From:      from,
		To:        order.Status,
		ActorID:   actorID,
		ChangedAt: order.UpdatedAt,
	})

	if order.Status != domain.StatusCancelled {
		return
	}
	s.metrics.OrdersCancelled.Inc()

	lines := []domain.OrderItemRestock{}
	if restocked {
		s.invalidateProducts(ctx, order.Items)
		for _, item := range order.Items {
			lines = append(lines, domain.OrderItemRestock{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}
	s.publish(ctx, domain.EventOrderCancelled, domain.OrderCancelledEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Restocked:   lines,
		CancelledAt: order.UpdatedAt,
	})
}

// GetOrderByID looks an order up by id. With a non-zero scopeUserID an order
// owned by someone else is reported as NotFound.
func (s *OrderService) GetOrderByID(ctx context.Context, id, scopeUserID uint64) (*domain.Order, error) {
	var (
		o   *domain.Order
		err error
	)
	if scopeUserID != 0 {
		o, err = s.store.Orders.FindByIDForUser(ctx, id, scopeUserID)
	} else {
		o, err = s.store.Orders.FindByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint64, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	filter.UserID = userID
	return s.store.Orders.List(ctx, filter)
}

func (s *OrderService) ListAllOrders(ctx context.Context, actor *domain.User, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	if err := domain.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, 0, err
	}
	return s.store.Orders.List(ctx, filter)
}

// CreatePaymentIntent asks the gateway for an intent and records its
// reference. Calling it again returns the recorded reference.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, orderID, userID uint64) (*domain.Order, error) {
	order, err := s.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPending || order.PaymentStatus != domain.PaymentPending {
		return nil, fmt.Errorf("%w: order %d is not awaiting payment", domain.ErrConflict, orderID)
	}
	if order.PaymentIntentID != "" {
		return order, nil
	}

	ref, err := s.payments.CreateIntent(ctx, order.ID, order.TotalAmount)
	if err != nil {
		logger.Error(ctx, "payment intent failed", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.store.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		if current.Status != domain.StatusPending || current.PaymentStatus != domain.PaymentPending {
			return fmt.Errorf("%w: order %d is not awaiting payment", domain.ErrConflict, orderID)
		}
		order = current
		if current.PaymentIntentID != "" {
			ref = current.PaymentIntentID
			return nil
		}
		current.PaymentIntentID = ref
		current.UpdatedAt = s.now()
		return s.store.Orders.UpdateStatus(ctx, current)
	})
	if err != nil {
		return nil, abortErr(err)
	}
	logger.Info(ctx, "payment intent recorded", "order_id", order.ID, "payment_intent_id", ref)
	return order, nil
}

// UpdatePaymentStatus records the gateway outcome. PAID on a PENDING order also
// confirms it. A repeated callback with the recorded outcome changes nothing.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID uint64, outcome string) (*domain.Order, error) {
	status, err := domain.ParsePaymentOutcome(outcome)
	if err != nil {
		return nil, err
	}

	var (
		order     *domain.Order
		from      domain.OrderStatus
		changed   bool
		confirmed bool
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err = s.store.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		if order.PaymentStatus == status {
			return nil
		}
		if order.PaymentStatus == domain.PaymentPaid {
			return fmt.Errorf("%w: order %d is already paid", domain.ErrConflict, orderID)
		}

		now := s.now()
		from = order.Status
		order.PaymentStatus = status
		order.UpdatedAt = now
		if status == domain.PaymentPaid && order.Status == domain.StatusPending {
			if err := order.TransitionTo(domain.StatusConfirmed, now); err != nil {
				return err
			}
			confirmed = true
		}
		changed = true
		return s.store.Orders.UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, abortErr(err)
	}
	if !changed {
		return order, nil
	}

	s.metrics.PaymentUpdates.WithLabelValues(string(status)).Inc()
	logger.Info(ctx, "payment status updated", "order_id", order.ID, "payment_status", status)
	s.publish(ctx, domain.EventPaymentUpdated, domain.PaymentUpdatedEvent{
		OrderID:         order.ID,
		PaymentStatus:   order.PaymentStatus,
		PaymentIntentID: order.PaymentIntentID,
		UpdatedAt:       order.UpdatedAt,
	})
	if confirmed {
		s.afterTransition(ctx, order, from, 0, false)
	}
	return order, nil
}

// publish runs after commit. A broker failure is logged and counted but never
// fails the request.
func (s *OrderService) publish(ctx context.Context, event string, payload any) {
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		s.metrics.EventPublishFailures.WithLabelValues(event).Inc()
		logger.Error(ctx, "failed to publish event", "event", event, "error", err)
	}
}

func (s *OrderService) invalidateProducts(ctx context.Context, items []domain.OrderItem) {
	if s.cache == nil || len(items) == 0 {
		return
	}
	ids := make([]uint64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		logger.Warn(ctx, "product cache invalidation failed", "product_ids", ids, "error", err)
	}
}
