package http

import (
	"net/http"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCart(c *gin.Context) {
	summary, err := h.carts.GetSummary(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toCart(summary))
}

func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.carts.AddItem(c.Request.Context(), currentUser(c).ID, req.ProductID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, toCartItem(item))
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.carts.UpdateItem(c.Request.Context(), currentUser(c).ID, id, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toCartItem(item))
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.carts.RemoveItem(c.Request.Context(), currentUser(c).ID, id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toCart(domain.Summarize(nil)))
}

// SyncCart reconciles the cart with current stock and returns what changed
// along with the updated cart.
func (h *Handler) SyncCart(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c).ID
	result, err := h.carts.SyncWithStock(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}
	summary, err := h.carts.GetSummary(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"sync": result, "cart": toCart(summary)})
}
