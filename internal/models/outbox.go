package models

import (
	"encoding/json"
	"time"
)

// Outbox event types emitted by the order engine.
const (
	EventOrderCreated              = "order_created"
	EventOrderStatusChanged        = "order_status_changed"
	EventOrderPaymentStatusChanged = "order_payment_status_changed"
	EventOrderCancelled            = "order_cancelled"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxMessage is a pending event row written in the same transaction as the
// order mutation it describes.
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent is the envelope serialized into the outbox payload
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

func newOrderOutboxMessage(eventType string, order *Order, data interface{}) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: order.OrderNumber,
		OccurredAt:  GetCurrentTime(),
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.OrderNumber,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     GetCurrentTime(),
		Status:        OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent creates the outbox message for a freshly created order
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderCreated, order, order)
}

// NewOrderStatusChangedEvent creates the outbox message for a fulfillment
// status transition.
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderStatusChanged, order, map[string]interface{}{
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"old_status":   oldStatus,
		"new_status":   order.Status,
	})
}

// NewPaymentStatusChangedEvent creates the outbox message for a payment
// status transition.
func NewPaymentStatusChangedEvent(order *Order, oldStatus PaymentStatus) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderPaymentStatusChanged, order, map[string]interface{}{
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"old_status":   oldStatus,
		"new_status":   order.PaymentStatus,
	})
}

// NewOrderCancelledEvent creates the outbox message for a cancellation with
// stock restitution.
func NewOrderCancelledEvent(order *Order) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderCancelled, order, map[string]interface{}{
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
	})
}
