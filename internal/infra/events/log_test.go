package events

import (
	"context"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/infra/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsDriver(t *testing.T) {
	pub, closeFn, err := New(config.EventsConfig{Driver: "log"})
	require.NoError(t, err)
	assert.IsType(t, LogPublisher{}, pub)
	assert.NoError(t, closeFn())

	// the kafka writer connects lazily, so construction needs no broker
	pub, closeFn, err = New(config.EventsConfig{Driver: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "orders"})
	require.NoError(t, err)
	assert.IsType(t, &kafka.Publisher{}, pub)
	assert.NoError(t, closeFn())
}

func TestLogPublisher(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, LogPublisher{}.Publish(ctx, domain.EventOrderCreated, domain.OrderCreatedEvent{OrderID: 1}))
	assert.Error(t, LogPublisher{}.Publish(ctx, "bad", make(chan int)))
}
