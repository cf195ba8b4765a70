// Package events selects the domain event transport.
package events

import (
	"context"
	"encoding/json"

	"storefront/internal/config"
	"storefront/internal/infra"
	"storefront/internal/infra/kafka"
	"storefront/internal/infra/rabbitmq"
	"storefront/internal/logger"
)

// LogPublisher writes events to the service log. It is the default transport
// for local runs.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	logger.Info(ctx, "domain event", "event", routingKey, "payload", string(body))
	return nil
}

// New returns the configured publisher and a close func for shutdown.
func New(cfg config.EventsConfig) (infra.Publisher, func() error, error) {
	switch cfg.Driver {
	case "rabbitmq":
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "kafka":
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p.Close, nil
	default:
		return LogPublisher{}, func() error { return nil }, nil
	}
}
