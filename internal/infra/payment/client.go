package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"storefront/internal/config"
	"storefront/internal/infra"
	"storefront/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

type intentRequest struct {
	OrderID  string `json:"order_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client talks to the payment provider over HTTP. Calls go through a circuit
// breaker so a failing provider is not hammered by every checkout.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(cfg config.PaymentConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: cfg.BreakerOpenDelay,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{http: httpClient, breaker: breaker}
}

func (c *Client) CreateIntent(ctx context.Context, orderID uint64, amount decimal.Decimal) (string, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		var out intentResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", "order-"+strconv.FormatUint(orderID, 10)).
			SetBody(intentRequest{
				OrderID:  strconv.FormatUint(orderID, 10),
				Amount:   amount.StringFixed(2),
				Currency: "usd",
			}).
			SetResult(&out).
			Post("/payment_intents")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
			return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode())
		}
		if out.ID == "" {
			return nil, errors.New("payment gateway returned no intent id")
		}
		return out.ID, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return "", err
	}
	return res.(string), nil
}

// Offline issues local references without contacting a provider. It is used
// when no gateway URL is configured.
type Offline struct{}

func (Offline) CreateIntent(_ context.Context, orderID uint64, _ decimal.Decimal) (string, error) {
	return fmt.Sprintf("pi_%d_%s", orderID, uuid.NewString()), nil
}

func New(cfg config.PaymentConfig) infra.PaymentGateway {
	if cfg.BaseURL == "" {
		return Offline{}
	}
	return NewClient(cfg)
}

var (
	_ infra.PaymentGateway = (*Client)(nil)
	_ infra.PaymentGateway = Offline{}
)
