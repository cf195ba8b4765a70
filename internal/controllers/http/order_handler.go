package http

import (
	"crypto/subtle"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/services"

	"github.com/gin-gonic/gin"
)

const headerWebhookSecret = "X-Webhook-Secret"

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orders.CreateOrder(c.Request.Context(), currentUser(c).ID, services.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, toOrder(order))
}

func (h *Handler) ListOrders(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}
	orders, total, err := h.orders.ListOrders(c.Request.Context(), currentUser(c).ID, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respondOrders(c, orders, total, filter)
}

func (h *Handler) ListAllOrders(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}
	orders, total, err := h.orders.ListAllOrders(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	respondOrders(c, orders, total, filter)
}

// GetOrder lets admins read any order; everyone else only sees their own.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)
	scope := user.ID
	if user.IsAdmin() {
		scope = 0
	}
	order, err := h.orders.GetOrderByID(c.Request.Context(), id, scope)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toOrder(order))
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), currentUser(c), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toOrder(order))
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)
	requester := user.ID
	if user.IsAdmin() {
		requester = 0
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), id, requester)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toOrder(order))
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.CreatePaymentIntent(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"orderId": order.ID, "paymentIntentId": order.PaymentIntentID})
}

// PaymentWebhook records a gateway outcome. The caller authenticates with the
// shared secret; an unset secret rejects every call.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	secret := h.opts.WebhookSecret
	given := c.GetHeader(headerWebhookSecret)
	if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
		abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook secret")
		return
	}
	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orders.UpdatePaymentStatus(c.Request.Context(), req.OrderID, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"orderId": order.ID, "status": order.Status, "paymentStatus": order.PaymentStatus})
}

func orderFilter(c *gin.Context) (repository.OrderFilter, bool) {
	var q OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return repository.OrderFilter{}, false
	}
	filter := repository.OrderFilter{Page: q.Page, Limit: q.Limit}
	if q.Status != "" {
		status, err := domain.ParseOrderStatus(q.Status)
		if err != nil {
			fail(c, err)
			return repository.OrderFilter{}, false
		}
		filter.Status = status
	}
	return filter, true
}

func respondOrders(c *gin.Context, orders []domain.Order, total int64, filter repository.OrderFilter) {
	respond(c, http.StatusOK, ListResponse[OrderResponse]{
		Items: toOrders(orders),
		Total: total,
		Page:  max(filter.Page, 1),
		Limit: filter.PageSize(),
	})
}
