package http

import (
	"time"

	"storefront/internal/domain"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type ProfileRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type ProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock"`
	Discount    int             `json:"discount"`
	CategoryID  uint64          `json:"categoryId" binding:"required"`
	ImageURL    string          `json:"imageUrl"`
}

func (r ProductRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Discount:    r.Discount,
		CategoryID:  r.CategoryID,
		ImageURL:    r.ImageURL,
	}
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type ProductQuery struct {
	CategoryID uint64 `form:"categoryId"`
	Search     string `form:"search"`
	MinPrice   string `form:"minPrice"`
	MaxPrice   string `form:"maxPrice"`
	InStock    bool   `form:"inStock"`
	Sort       string `form:"sort"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type OrderQuery struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

type AddCartItemRequest struct {
	ProductID uint64 `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CreateOrderRequest carries the shipping fields inline next to the payment method.
type CreateOrderRequest struct {
	domain.ShippingAddress
	PaymentMethod string `json:"paymentMethod"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type PaymentWebhookRequest struct {
	OrderID uint64 `json:"orderId" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

type UserResponse struct {
	ID        uint64      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	Address   string      `json:"address"`
	CreatedAt time.Time   `json:"createdAt"`
}

type AuthResponse struct {
	User   UserResponse        `json:"user"`
	Tokens *services.TokenPair `json:"tokens"`
}

type ProductResponse struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	UnitPrice   string    `json:"unitPrice"`
	Discount    int       `json:"discount"`
	Stock       int       `json:"stock"`
	InStock     bool      `json:"inStock"`
	CategoryID  uint64    `json:"categoryId"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CartItemResponse struct {
	ID        uint64           `json:"id"`
	ProductID uint64           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *ProductResponse `json:"product,omitempty"`
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	Subtotal   string             `json:"subtotal"`
	Discount   string             `json:"discount"`
	Total      string             `json:"total"`
}

type OrderItemResponse struct {
	ID          uint64           `json:"id"`
	ProductID   uint64           `json:"productId"`
	ProductName string           `json:"productName"`
	Quantity    int              `json:"quantity"`
	Price       string           `json:"price"`
	LineTotal   string           `json:"lineTotal"`
	Product     *ProductResponse `json:"product,omitempty"`
}

type OrderResponse struct {
	ID              uint64                 `json:"id"`
	UserID          uint64                 `json:"userId"`
	Status          domain.OrderStatus     `json:"status"`
	TotalAmount     string                 `json:"totalAmount"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   domain.PaymentStatus   `json:"paymentStatus"`
	PaymentIntentID string                 `json:"paymentIntentId,omitempty"`
	Items           []OrderItemResponse    `json:"items"`
	ShippedAt       *time.Time             `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time             `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time             `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
	}
}

func toProduct(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		UnitPrice:   money(p.UnitPrice()),
		Discount:    p.Discount,
		Stock:       p.Stock,
		InStock:     p.InStock(),
		CategoryID:  p.CategoryID,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProducts(ps []domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toProduct(&ps[i]))
	}
	return out
}

func toCartItem(item *domain.CartItem) CartItemResponse {
	resp := CartItemResponse{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}
	if item.Product != nil {
		p := toProduct(item.Product)
		resp.Product = &p
	}
	return resp
}

func toCart(s domain.CartSummary) CartResponse {
	items := make([]CartItemResponse, 0, len(s.Items))
	for i := range s.Items {
		items = append(items, toCartItem(&s.Items[i]))
	}
	return CartResponse{
		Items:      items,
		TotalItems: s.TotalItems,
		Subtotal:   money(s.Subtotal),
		Discount:   money(s.Discount),
		Total:      money(s.Total),
	}
}

func toOrder(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		resp := OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       money(item.Price),
			LineTotal:   money(item.LineTotal()),
		}
		if item.Product != nil {
			p := toProduct(item.Product)
			resp.Product = &p
		}
		items = append(items, resp)
	}
	return OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		TotalAmount:     money(o.TotalAmount),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		PaymentIntentID: o.PaymentIntentID,
		Items:           items,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrders(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrder(&orders[i]))
	}
	return out
}
