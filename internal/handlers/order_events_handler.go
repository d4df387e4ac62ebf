package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

// OrderEventsHandler consumes order lifecycle events from Kafka. It stands in
// for the notification side of the shop (order confirmation, shipping
// updates), which talks to external delivery services outside this core.
type OrderEventsHandler struct {
	logger logger.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler
func NewOrderEventsHandler(logger logger.Logger) *OrderEventsHandler {
	return &OrderEventsHandler{
		logger: logger,
	}
}

// HandleMessage handles incoming order events from Kafka messages
func (h *OrderEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal order event", "error", err)
		return fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	switch event.EventType {
	case models.EventOrderCreated:
		h.logger.Info("Order placed",
			"orderNumber", event.AggregateID,
			"eventID", event.EventID)

	case models.EventOrderStatusChanged:
		oldStatus, newStatus := transitionFromEvent(event)
		h.logger.Info("Order status changed",
			"orderNumber", event.AggregateID,
			"oldStatus", oldStatus,
			"newStatus", newStatus)

	case models.EventOrderPaymentStatusChanged:
		oldStatus, newStatus := transitionFromEvent(event)
		h.logger.Info("Order payment status changed",
			"orderNumber", event.AggregateID,
			"oldStatus", oldStatus,
			"newStatus", newStatus)

	case models.EventOrderCancelled:
		h.logger.Info("Order cancelled",
			"orderNumber", event.AggregateID,
			"eventID", event.EventID)

	default:
		h.logger.Warn("Unknown order event type", "eventType", event.EventType)
	}

	return nil
}

func transitionFromEvent(event models.OutboxMessageEvent) (string, string) {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		return "", ""
	}

	oldStatus, _ := data["old_status"].(string)
	newStatus, _ := data["new_status"].(string)
	return oldStatus, newStatus
}
