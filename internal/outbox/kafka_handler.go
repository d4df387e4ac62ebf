package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/pkg/circuitbreaker"
	"github.com/nductrung-205/furniture-be/pkg/kafka"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

// KafkaHandler publishes outbox messages to Kafka, keyed by order number so
// all events of one order land on the same partition. Publishing runs under
// a circuit breaker; while the broker is down the outbox keeps the messages
// pending instead of hammering it.
type KafkaHandler struct {
	producer *kafka.Producer
	topic    string
	breaker  *circuitbreaker.Breaker
	logger   logger.Logger
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(producer *kafka.Producer, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		topic:    topic,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			HalfOpenMaxCalls: 2,
		}),
		logger: logger,
	}
}

// HandleMessage handles an outbox message by publishing it to Kafka
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	key := message.AggregateID

	err := h.breaker.Execute(func() error {
		return h.producer.SendMessage(ctx, h.topic, key, message.Payload)
	})

	if err != nil {
		h.logger.Error("Failed to publish message to Kafka",
			"error", err,
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	h.logger.Debug("Published message to Kafka",
		"topic", h.topic,
		"messageID", message.ID,
		"aggregateID", message.AggregateID,
		"eventType", message.EventType)

	return nil
}
