package http

import (
	"context"
	"net/http"
	"strconv"

	"storefront/internal/config"
	"storefront/internal/infra/ratelimit"
	"storefront/internal/metrics"
	"storefront/internal/services"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Carts   *services.CartService
	Orders  *services.OrderService
	Metrics *metrics.Metrics
	// Limiter may be nil when rate limiting is disabled.
	Limiter ratelimit.Limiter
	// Health reports readiness of the backing stores; nil means always ready.
	Health func(ctx context.Context) error
}

type Options struct {
	CORSOrigin    string
	WebhookSecret string
	MetricsPath   string
	RateLimit     config.RateLimitConfig
}

type Handler struct {
	auth    *services.AuthService
	catalog *services.CatalogService
	carts   *services.CartService
	orders  *services.OrderService
	metrics *metrics.Metrics
	limiter ratelimit.Limiter
	health  func(ctx context.Context) error
	opts    Options
}

func NewHandler(deps Deps, opts Options) *Handler {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	limiter := deps.Limiter
	if !opts.RateLimit.Enabled {
		limiter = nil
	}
	return &Handler{
		auth:    deps.Auth,
		catalog: deps.Catalog,
		carts:   deps.Carts,
		orders:  deps.Orders,
		metrics: deps.Metrics,
		limiter: limiter,
		health:  deps.Health,
		opts:    opts,
	}
}

// NewRouter builds the gin engine with the middleware chain and every route.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), RequestLogger(), CORS(h.opts.CORSOrigin), Metrics(h.metrics))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET(h.opts.MetricsPath, gin.WrapH(h.metrics.Handler()))

	api := r.Group("/api")
	api.Use(RateLimit(h.limiter, "api", ratelimit.PerSecond(h.opts.RateLimit.RPS, h.opts.RateLimit.Burst)))

	login := RateLimit(h.limiter, "auth", ratelimit.PerMinute(h.opts.RateLimit.LoginPerMinute))
	auth := api.Group("/auth")
	auth.POST("/register", login, h.Register)
	auth.POST("/login", login, h.Login)
	auth.POST("/refresh", login, h.Refresh)

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.GET("/categories", h.ListCategories)
	api.POST("/payments/webhook", h.PaymentWebhook)

	authed := api.Group("", RequireAuth(h.auth))
	authed.GET("/auth/me", h.Me)
	authed.PUT("/auth/me", h.UpdateProfile)

	authed.GET("/cart", h.GetCart)
	authed.DELETE("/cart", h.ClearCart)
	authed.POST("/cart/items", h.AddCartItem)
	authed.PUT("/cart/items/:id", h.UpdateCartItem)
	authed.DELETE("/cart/items/:id", h.RemoveCartItem)
	authed.POST("/cart/sync", h.SyncCart)

	authed.POST("/orders", h.CreateOrder)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.PUT("/orders/:id/cancel", h.CancelOrder)
	authed.POST("/orders/:id/payment-intent", h.CreatePaymentIntent)

	admin := authed.Group("", RequireAdmin())
	admin.POST("/products", h.CreateProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.POST("/categories", h.CreateCategory)
	admin.PUT("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)
	admin.PUT("/orders/:id/status", h.UpdateOrderStatus)
	admin.GET("/admin/orders", h.ListAllOrders)
}

func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			abortWith(c, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

// idParam parses a positive numeric path parameter, answering 400 otherwise.
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		abortWith(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
