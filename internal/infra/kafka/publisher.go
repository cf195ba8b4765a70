package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/infra"
	"storefront/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Publisher writes every event to one topic. Events keyed by order id land on
// the same partition; the routing key travels in the "event" header.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

var _ infra.Publisher = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
	logger.Info(context.Background(), "kafka publisher created", "brokers", brokers, "topic", topic)
	return &Publisher{writer: writer, topic: topic}
}

type keyed interface {
	EventKey() string
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, data any) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := routingKey
	if k, ok := data.(keyed); ok {
		key = k.EventKey()
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "event", Value: []byte(routingKey)}},
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	logger.Debug(ctx, "event published", "topic", p.topic, "event", routingKey, "key", key)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
